package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Broadcaster publishes bot lifecycle and trade events to interested clients.
type Broadcaster interface {
	Broadcast(tenantID uuid.UUID, event Event)
}

// Event is a single notification pushed to websocket clients.
type Event struct {
	Type      string      `json:"type"`
	TenantID  uuid.UUID   `json:"tenant_id"`
	ConfigID  uuid.UUID   `json:"config_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Event types pushed by the bot runtime.
const (
	EventBotStarted   = "bot_started"
	EventBotStopped   = "bot_stopped"
	EventBotError     = "bot_error"
	EventSignal       = "signal"
	EventTradeOpened  = "trade_opened"
	EventTradeClosed  = "trade_closed"
	EventEdgeRejected = "edge_rejected"
)

type client struct {
	tenantID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
}

// Hub fans events out to websocket clients scoped by tenant. Sends are
// non-blocking; a client that cannot keep up is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *logrus.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Broadcast delivers the event to every client registered for its tenant.
func (h *Hub) Broadcast(tenantID uuid.UUID, event Event) {
	event.TenantID = tenantID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithField("error", err).Error("Failed to marshal event")
		return
	}

	h.mu.RLock()
	var stale []*client
	for c := range h.clients {
		if c.tenantID != tenantID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer, disconnect it
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.remove(c)
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
// The tenant is taken from the "tenant" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant"))
	if err != nil {
		http.Error(w, "invalid or missing tenant id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithField("error", err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{
		tenantID: tenantID,
		conn:     conn,
		send:     make(chan []byte, 32),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.NotifyClientsConnected.Inc()

	h.logger.WithField("tenant_id", tenantID).Info("Notification client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer h.remove(c)
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop drains inbound frames so control messages are processed and
// closed connections are noticed.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		close(c.send)
		c.conn.Close()
		metrics.NotifyClientsConnected.Dec()
		h.logger.WithField("tenant_id", c.tenantID).Info("Notification client disconnected")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NopBroadcaster discards all events. Used when notifications are disabled.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(uuid.UUID, Event) {}
