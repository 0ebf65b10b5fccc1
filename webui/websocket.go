package webui

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"storybook_backend/logging"
	"storybook_backend/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin policy is not useful here: the UI may be served from
	// a different port during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans out progress messages to connected websocket clients. Slow
// clients are dropped rather than allowed to stall the pipeline.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan WSMessage
	logger  *logging.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan WSMessage),
		logger:  logger.Named("ws"),
	}
}

// HandleWS upgrades the request and registers the client until it
// disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	send := make(chan WSMessage, 32)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(conn, send)
	h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, send chan WSMessage) {
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			h.remove(conn)
			return
		}
	}
}

// readLoop drains the connection so close frames are processed and
// disconnects are noticed.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}

// Broadcast queues a message to every connected client. Clients whose
// buffers are full are disconnected.
func (h *Hub) Broadcast(msg WSMessage) {
	msg.Timestamp = time.Now().UTC()

	h.mu.Lock()
	var stalled []*websocket.Conn
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			stalled = append(stalled, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range stalled {
		h.logger.Warn("dropping stalled websocket client")
		h.remove(conn)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// OnStage implements pipeline.StageObserver by broadcasting a progress
// message.
func (h *Hub) OnStage(slideID string, stage pipeline.Stage, detail string) {
	h.Broadcast(WSMessage{
		Type: MessageTypeProgress,
		Payload: ProgressPayload{
			SlideID: slideID,
			Stage:   string(stage),
			Detail:  detail,
		},
	})
}
