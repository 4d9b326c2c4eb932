package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kevinchung58/Paper2Poster/internal/api/view"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/shared/id"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
	maxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Message is the envelope of every frame in both directions.
type Message struct {
	Type    string        `json:"type"`
	Session *view.Session `json:"session,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type client struct {
	id   id.ConnID
	send chan []byte
}

// Handler pushes a session snapshot to every connected client after each
// store transition.
type Handler struct {
	store    *session.Store
	renderer view.Renderer
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()
}

// NewHandler creates a handler and subscribes it to store.
func NewHandler(store *session.Store, renderer view.Renderer, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	h := &Handler{
		store:    store,
		renderer: renderer,
		logger:   logger.Component("ws"),
		metrics:  metrics,
		clients:  make(map[*client]struct{}),
	}
	h.unsubscribe = store.Subscribe(func(_, next session.State) { h.broadcast(next) })
	return h
}

// Clients returns the number of connected clients.
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close detaches from the store and disconnects every client.
func (h *Handler) Close() {
	h.unsubscribe()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Handler) encode(s session.State) ([]byte, error) {
	v := h.renderer.Render(s)
	return sonic.Marshal(Message{Type: "snapshot", Session: &v})
}

// broadcast runs on the store loop and never blocks. A client that cannot
// keep up is disconnected.
func (h *Handler) broadcast(s session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := h.encode(s)
	if err != nil {
		h.logger.Error("Failed to encode snapshot", zap.Error(err))
		return
	}
	for c := range h.clients {
		select {
		case c.send <- data:
			h.metrics.RecordWSMessage("out", "snapshot")
		default:
			h.logger.Warn("Dropping slow client", zap.String("conn_id", c.id.String()))
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// HandleConnection upgrades the request and serves the client until it
// disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{id: id.NewConnID(), send: make(chan []byte, sendBuffer)}
	log := h.logger.With(zap.String("conn_id", cl.id.String()))

	// The first frame is always the current snapshot. Taking it under mu
	// orders it before any broadcast the client is registered for.
	h.mu.Lock()
	first, err := h.encode(h.store.Snapshot())
	if err != nil {
		h.mu.Unlock()
		conn.Close()
		return
	}
	cl.send <- first
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.metrics.IncWSConnections()
	log.Debug("Client connected")

	go h.writeLoop(conn, cl)
	h.readLoop(conn, cl)

	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		close(cl.send)
		delete(h.clients, cl)
	}
	h.mu.Unlock()
	h.metrics.DecWSConnections()
	log.Debug("Client disconnected")
}

func (h *Handler) readLoop(conn *websocket.Conn, cl *client) {
	conn.SetReadLimit(maxMessage)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.reply(cl, Message{Type: "error", Error: "invalid message"})
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			h.reply(cl, Message{Type: "pong"})
		case "snapshot":
			v := h.renderer.Render(h.store.Snapshot())
			h.reply(cl, Message{Type: "snapshot", Session: &v})
		default:
			h.reply(cl, Message{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Handler) reply(cl *client, msg Message) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- data:
	default:
	}
}

func (h *Handler) writeLoop(conn *websocket.Conn, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
