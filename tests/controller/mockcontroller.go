// Package controller fakes the robot controller's web-service API surface the
// client talks to: the system-info resource that carries authentication, the
// subscription endpoints, the event socket, and the polled joint-target
// resource. Tests flip its knobs to produce every failure mode the real
// cabinet has shown us.
package controller

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/tests/server"
)

const DefaultSubscriptionId = "47"

type MockController struct {
	logger          *logger.Logger
	mux             *http.ServeMux
	server          *httptest.Server
	websocketServer *server.WebsocketServer

	Url string

	mu sync.Mutex

	// Behavior knobs
	RejectCredentials bool
	RejectSocket      bool
	FailDeletes       bool

	// When non-empty, only this resource path is accepted for subscription
	AcceptedResourcePath string

	SubscriptionId string

	// Observations
	subscriptionRequests []string
	deletedSubscriptions []string
	pollCount            int
	socketCookie         string

	joints [6]float64
}

func New(logger *logger.Logger) *MockController {
	mux := http.NewServeMux()
	httpServer := httptest.NewServer(mux)
	websocketServer := server.NewWebsocketServer(logger)

	m := &MockController{
		logger:          logger,
		mux:             mux,
		server:          httpServer,
		websocketServer: websocketServer,
		Url:             httpServer.URL,
		SubscriptionId:  DefaultSubscriptionId,
	}

	mux.HandleFunc("/rw/system", m.handleSystemInfo)
	mux.HandleFunc("/rw/motionsystem/", m.handlePoll)
	mux.HandleFunc("/subscription", m.handleSubscriptionCreate)
	mux.HandleFunc("/subscription/", m.handleSubscriptionSubtree)
	mux.HandleFunc("/poll", m.handleSocket)
	mux.HandleFunc("/poll/", m.handleSocket)

	return m
}

func (m *MockController) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	if m.RejectCredentials {
		w.Header().Set("WWW-Authenticate", `Digest realm="controller", nonce="deadbeef", qop="auth", algorithm=MD5`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "ABBCX", Value: "mock-session", Path: "/"})
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"system":{"name":"mock","rwversion":"6.x"}}`)
}

func (m *MockController) handleSubscriptionCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.ParseForm()
	resourcePath := r.PostFormValue("1")

	m.mu.Lock()
	m.subscriptionRequests = append(m.subscriptionRequests, resourcePath)
	accepted := m.AcceptedResourcePath == "" || m.AcceptedResourcePath == resourcePath
	m.mu.Unlock()

	if !accepted {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<subscription><id>%s</id></subscription>`, m.SubscriptionId)
}

func (m *MockController) handleSubscriptionSubtree(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodDelete:
		id := strings.TrimPrefix(r.URL.Path, "/subscription/")

		m.mu.Lock()
		m.deletedSubscriptions = append(m.deletedSubscriptions, id)
		failDeletes := m.FailDeletes
		m.mu.Unlock()

		if failDeletes {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/poll"):
		m.handleSocket(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *MockController) handleSocket(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.socketCookie = r.Header.Get("Cookie")
	m.mu.Unlock()

	if m.RejectSocket {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	m.websocketServer.Serve(w, r)
}

func (m *MockController) handlePoll(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.pollCount++
	joints := m.joints
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w,
		`{"_embedded":{"_state":[{"_type":"rap-jointtarget","rax_1":"%f","rax_2":"%f","rax_3":"%f","rax_4":"%f","rax_5":"%f","rax_6":"%f"}]}}`,
		joints[0], joints[1], joints[2], joints[3], joints[4], joints[5])
}

// SetJoints changes what the polled joint-target resource reports
func (m *MockController) SetJoints(joints [6]float64) {
	m.mu.Lock()
	m.joints = joints
	m.mu.Unlock()
}

// PushTelemetry emits one subscription event over the attached socket
func (m *MockController) PushTelemetry(joints [6]float64) {
	payload := fmt.Sprintf(
		`<html><body><ul><li class="rap-jointtarget-ev"><a href="/subscription/%s" rel="group"></a>`+
			`<span class="rax_1">%f</span><span class="rax_2">%f</span><span class="rax_3">%f</span>`+
			`<span class="rax_4">%f</span><span class="rax_5">%f</span><span class="rax_6">%f</span></li></ul></body></html>`,
		m.SubscriptionId, joints[0], joints[1], joints[2], joints[3], joints[4], joints[5])

	m.websocketServer.Write([]byte(payload))
}

// SocketAttached is closed once a client websocket has connected
func (m *MockController) SocketAttached() <-chan struct{} {
	return m.websocketServer.Attached
}

func (m *MockController) SubscriptionRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.subscriptionRequests...)
}

func (m *MockController) DeletedSubscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.deletedSubscriptions...)
}

// SocketCookie reports the Cookie header seen on the most recent upgrade request
func (m *MockController) SocketCookie() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socketCookie
}

func (m *MockController) PollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollCount
}

func (m *MockController) BreakWebsocket() {
	m.websocketServer.ForceClose()
}

func (m *MockController) CloseWebsocket() {
	m.websocketServer.Close()
}

func (m *MockController) Close() {
	m.websocketServer.Close()
	m.server.Close()
}
