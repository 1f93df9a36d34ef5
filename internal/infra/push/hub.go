// Package push maintains live WebSocket connections and broadcasts
// completed articles to the ones whose filter matches.
package push

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"logistics-news/internal/domain/entity"
	"logistics-news/internal/observability/metrics"
)

const (
	// DefaultMaxConnections caps live connections; connection attempts
	// beyond it are closed with 1013 "capacity".
	DefaultMaxConnections = 100

	// sendBufferSize is the per-connection outbound buffer. Overflow
	// drops the oldest undelivered message.
	sendBufferSize = 32

	pingInterval = 30 * time.Second
	idleTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
)

// Envelope is a server-to-client frame.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// clientFrame is what clients may send back.
type clientFrame struct {
	Type string `json:"type"`
}

// Hub is the connection registry. Safe for concurrent use.
type Hub struct {
	upgrader websocket.Upgrader
	max      int

	mu    sync.RWMutex
	conns map[*conn]struct{}
}

type conn struct {
	ws     *websocket.Conn
	filter entity.Filter
	send   chan []byte
	closed sync.Once
	done   chan struct{}
}

// NewHub creates a Hub with the given connection cap.
func NewHub(maxConnections int) *Hub {
	if maxConnections <= 0 {
		maxConnections = DefaultMaxConnections
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		max:   maxConnections,
		conns: make(map[*conn]struct{}),
	}
}

// Serve upgrades the request and runs the connection until it closes.
// The filter is immutable for the connection's lifetime.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, filter entity.Filter) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &conn{
		ws:     ws,
		filter: filter,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}

	if !h.register(c) {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "capacity")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		_ = ws.Close()
		return
	}
	metrics.PushConnections.Inc()
	defer func() {
		h.unregister(c)
		metrics.PushConnections.Dec()
	}()

	go c.writeLoop()
	c.readLoop()
}

func (h *Hub) register(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) >= h.max {
		return false
	}
	h.conns[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.shutdown()
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast delivers a completed article to every connection whose
// filter matches. Delivery is non-blocking per connection; a full
// buffer drops the oldest undelivered message.
func (h *Hub) Broadcast(article *entity.Article) {
	payload, err := json.Marshal(Envelope{Type: "new_article", Data: article})
	if err != nil {
		slog.Error("article marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		if !c.filter.Matches(article) {
			continue
		}
		c.enqueue(payload)
		metrics.PushDelivered.Inc()
	}
}

// Close sends a normal close frame to every connection. Used during
// graceful shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down")
	for _, c := range conns {
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		c.shutdown()
	}
}

// enqueue is the drop-oldest bounded send.
func (c *conn) enqueue(payload []byte) {
	for {
		select {
		case c.send <- payload:
			return
		default:
			select {
			case <-c.send:
				metrics.PushDropped.Inc()
			default:
			}
		}
	}
}

func (c *conn) shutdown() {
	c.closed.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// readLoop consumes client frames, treating any readable message as
// liveness. Returns when the peer closes or goes idle past the limit.
func (c *conn) readLoop() {
	defer c.shutdown()
	c.ws.SetReadLimit(1024)
	_ = c.ws.SetReadDeadline(time.Now().Add(idleTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(idleTimeout))

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err == nil && frame.Type == "pong" {
			continue
		}
	}
}

// writeLoop drains the send buffer and emits pings on a fixed cadence.
func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	ping, _ := json.Marshal(Envelope{Type: "ping"})

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, ping); err != nil {
				c.shutdown()
				return
			}
		}
	}
}
