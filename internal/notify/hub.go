package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/internal/metrics"
	"github.com/wonny/tradepilot/internal/workspace"
	"github.com/wonny/tradepilot/pkg/logger"
)

// Event types pushed to websocket clients
const (
	EventNotification = "notification"
	EventStatus       = "status"
	EventWorkspace    = "workspace"
)

const (
	PingInterval = 30 * time.Second
	pongWait     = 2 * PingInterval
	writeTimeout = 10 * time.Second
	readLimit    = 4096
	sendBuffer   = 32
)

// Event is the JSON envelope sent to clients
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time time.Time   `json:"time"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub broadcasts notifications and status snapshots to websocket clients
// ⭐ SSOT: 실시간 이벤트 푸시는 Hub에서만
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	logger   *logger.Logger
}

// NewHub creates a hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		logger:  log.WithComponent("hub"),
	}
}

// ServeHTTP upgrades the request and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebsocketClients.Inc()
	h.logger.WithField("clients", count).Debug("WebSocket client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// readLoop discards client messages and unregisters on disconnect
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("WebSocket read ended")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		metrics.WebsocketClients.Dec()
		c.close()
	}
}

// Broadcast sends an event to every client. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data, Time: time.Now()})
	if err != nil {
		h.logger.WithError(err).WithField("type", eventType).Error("Failed to encode event")
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow WebSocket client")
		h.remove(c)
	}
}

// Notify implements flow.Notifier
func (h *Hub) Notify(n flow.Notification) {
	metrics.Notifications.WithLabelValues("websocket", string(n.Severity)).Inc()
	h.Broadcast(EventNotification, n)
}

// PublishStatus is a flow.StatusObserver
func (h *Hub) PublishStatus(st flow.Status) {
	h.Broadcast(EventStatus, st)
}

// PublishWorkspace is a workspace change listener
func (h *Hub) PublishWorkspace(st workspace.State) {
	h.Broadcast(EventWorkspace, st)
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
