package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
)

// WebsocketServer is the push side of a fake subscription stream: tests write
// event payloads with Write and they land on whatever client is attached.
type WebsocketServer struct {
	logger *logger.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	// Closed once a client has attached, so tests can synchronize pushes
	Attached chan struct{}
}

func NewWebsocketServer(logger *logger.Logger) *WebsocketServer {
	return &WebsocketServer{
		logger:   logger,
		Attached: make(chan struct{}),
	}
}

func (w *WebsocketServer) Serve(writer http.ResponseWriter, request *http.Request) {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{request.Header.Get("Sec-WebSocket-Protocol")},
	}

	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		w.logger.Errorf("failed to upgrade websocket: %s", err)
		return
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	select {
	case <-w.Attached:
	default:
		close(w.Attached)
	}

	// The subscription stream is one-way; reading just keeps the connection
	// alive until the peer or a test closes it
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (w *WebsocketServer) Write(message []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		w.logger.Errorf("no websocket client attached")
		return
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		w.logger.Errorf("failed to write to websocket connection: %s", err)
	}
}

func (w *WebsocketServer) ForceClose() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		w.conn.Close()
	}
}

func (w *WebsocketServer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		// elegant close
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		w.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		w.conn.Close()
	}
}
