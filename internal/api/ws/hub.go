package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 256 << 10
)

// Recorder receives WebSocket metrics
type Recorder interface {
	RecordWSMessage(direction, msgType string)
	IncWSConnections()
	DecWSConnections()
}

// client is one live connection
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
	subs   map[string]bool

	// generation runs off the read loop; one at a time per connection
	jobs       sync.WaitGroup
	generating atomic.Bool
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		subs: make(map[string]bool),
	}
}

// enqueue queues data without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// subscribe replaces the app filter. No ids means every event.
func (c *client) subscribe(appIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = make(map[string]bool, len(appIDs))
	for _, id := range appIDs {
		c.subs[id] = true
	}
}

func (c *client) wants(evt types.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 || evt.AppID == "" {
		return true
	}
	return c.subs[evt.AppID]
}

// writePump owns all writes to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub tracks connections and fans out domain events
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	metrics Recorder
	logger  *zap.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics Recorder, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*client),
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Debug("websocket connected", zap.String("conn_id", c.id))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
	if ok && h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Debug("websocket disconnected", zap.String("conn_id", c.id))
}

// Publish implements apps.Publisher
func (h *Hub) Publish(evt types.Event) {
	msg := newMessage(TypeEvent)
	msg.Event = &evt
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", string(evt.Type)), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !c.wants(evt) {
			continue
		}
		if !c.enqueue(data) {
			h.logger.Warn("dropping event for slow client",
				zap.String("conn_id", c.id),
				zap.String("type", string(evt.Type)))
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("out", TypeEvent)
		}
	}
}

// Len returns the number of live connections
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
