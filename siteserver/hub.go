package siteserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vitalvas/wsconsole/metrics"
)

const (
	writeWait      = 5 * time.Second
	clientSendSize = 64
)

// HubConfig configures the console WebSocket endpoint.
type HubConfig struct {
	// MessagesPerSecond limits inbound frames per client. Zero disables
	// the limit.
	MessagesPerSecond float64
	Burst             int

	// CheckOrigin overrides the same-origin check of the upgrader.
	CheckOrigin func(r *http.Request) bool

	Logger  *slog.Logger
	Metrics *metrics.Server
}

// Hub is the console endpoint: every text frame a client sends is echoed
// back to it, and Broadcast delivers console log lines to every client.
type Hub struct {
	upgrader websocket.Upgrader
	limit    rate.Limit
	burst    int
	logger   *slog.Logger
	metrics  *metrics.Server

	mu      sync.Mutex
	clients map[uuid.UUID]*client
	closed  bool

	wg sync.WaitGroup
}

type client struct {
	id      uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewHub returns a hub without clients.
func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: cfg.CheckOrigin,
		},
		limit:   rate.Inf,
		burst:   cfg.Burst,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		clients: make(map[uuid.UUID]*client),
	}

	if cfg.MessagesPerSecond > 0 {
		h.limit = rate.Limit(cfg.MessagesPerSecond)
		if h.burst <= 0 {
			h.burst = 1
		}
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}

	return h
}

// ServeHTTP upgrades the request and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		return
	}

	c := &client{
		id:      uuid.New(),
		conn:    conn,
		send:    make(chan []byte, clientSendSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(h.limit, h.burst),
	}

	if !h.register(c) {
		c.stop()
		return
	}

	go func() {
		defer h.wg.Done()
		h.writeLoop(c)
	}()

	h.readLoop(c)
}

// Broadcast queues line for every client and returns how many accepted
// it. Clients whose queue is full miss the line.
func (h *Hub) Broadcast(line string) int {
	msg := []byte(line)

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, c := range h.clients {
		if h.enqueue(c, msg) {
			delivered++
		}
	}

	h.metrics.Broadcast(delivered)
	return delivered
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close disconnects every client and waits for their writers to exit.
// Clients connecting afterwards are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}

	h.wg.Wait()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	// Counted under the lock so Close never waits before the writer exists.
	h.wg.Add(1)
	h.clients[c.id] = c
	h.metrics.ClientConnected()
	h.logger.Info("console client connected", "client", c.id, "remote", c.conn.RemoteAddr().String(), "clients", len(h.clients))

	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		h.metrics.ClientDisconnected()
		h.logger.Info("console client disconnected", "client", c.id, "clients", len(h.clients))
	}
	h.mu.Unlock()

	c.stop()
}

func (h *Hub) enqueue(c *client, msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		h.metrics.Dropped("slow_client")
		h.logger.Warn("dropping frame for slow client", "client", c.id)
		return false
	}
}

func (h *Hub) readLoop(c *client) {
	defer h.unregister(c)

	for {
		mt, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.logger.Debug("console client read failed", "client", c.id, "error", err)
			}
			return
		}

		if mt != websocket.TextMessage {
			continue
		}

		if !c.limiter.Allow() {
			h.metrics.Dropped("rate_limited")
			h.logger.Warn("dropping frame over rate limit", "client", c.id)
			continue
		}

		if h.enqueue(c, p) {
			h.metrics.Echoed()
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("console client write failed", "client", c.id, "error", err)
				c.stop()
				return
			}
		case <-c.done:
			return
		}
	}
}
