package websocket

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
)

// MockSubscriptionServer plays the controller's event socket: it accepts the
// upgrade (echoing the requested sub-protocol) and pushes every payload queued
// on SendQueue to each connecting client.
type MockSubscriptionServer struct {
	logger   *logger.Logger
	listener net.Listener

	Addr      string
	SendQueue chan []byte

	// Headers observed on the most recent upgrade request
	UpgradeHeaders chan http.Header

	// When true the server refuses to upgrade, which is how we simulate a
	// controller without socket support on a candidate endpoint
	RejectUpgrade bool
}

func NewMockSubscriptionServer(logger *logger.Logger) *MockSubscriptionServer {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		logger.Errorf("failed to setup listener")
	}

	mockServer := &MockSubscriptionServer{
		logger:         logger,
		listener:       listener,
		Addr:           fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port),
		SendQueue:      make(chan []byte, 10),
		UpgradeHeaders: make(chan http.Header, 10),
	}

	go func() {
		http.Serve(mockServer.listener, mockServer)
	}()

	return mockServer
}

func (m *MockSubscriptionServer) Shutdown() {
	m.listener.Close()
}

func (m *MockSubscriptionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case m.UpgradeHeaders <- r.Header.Clone():
	default:
	}

	if m.RejectUpgrade {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	upgrader := websocket.Upgrader{
		Subprotocols: []string{SubProtocol},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Errorf("Error during connection upgradation: %s", err)
		return
	}
	defer conn.Close()

	for message := range m.SendQueue {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			m.logger.Errorf("Error during message writing: %s", err)
			return
		}
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
