package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// defaultWriteTimeout bounds how long a single connection's send may block.
// Broadcast is otherwise non-blocking/best-effort per the concurrency
// model: a slow client never stalls tick processing.
const defaultWriteTimeout = 5 * time.Second

// Connection represents a single WebSocket client subscribed to one
// namespace's event stream.
//
// Every field is set at construction and never reassigned, so Connection
// needs no lock of its own.
type Connection struct {
	id     string
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// Hub fans a namespace's engine events out to every open WebSocket
// connection for that namespace. One Hub per namespace — there is no
// cross-namespace or cross-process distribution to do.
type Hub struct {
	mu           sync.RWMutex
	connections  map[string]*Connection
	writeTimeout time.Duration
}

// NewHub creates an empty Hub with the default write timeout.
func NewHub() *Hub {
	return &Hub{
		connections:  make(map[string]*Connection),
		writeTimeout: defaultWriteTimeout,
	}
}

// HandleConnection manages one WebSocket connection's lifecycle: register,
// block on a trivial read loop (answering ping, ignoring everything else),
// unregister on close. Called by the HTTP handler after upgrade.
func (h *Hub) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	c := &Connection{id: uuid.New().String(), conn: conn, ctx: ctx, cancel: cancel}

	h.register(c)
	defer h.unregister(c)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Action == "ping" {
			h.sendJSON(c, map[string]string{"type": "pong"})
		}
	}
}

// Broadcast sends a pre-marshaled event payload to every open connection
// on this namespace. Non-blocking with respect to the caller: a dropped or
// slow client is closed, never allowed to stall the caller (the engine's
// serializer goroutine, per the concurrency model's "outbound event
// broadcasts are non-blocking or best-effort" rule).
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		go func(c *Connection) {
			if err := h.sendRaw(c, payload); err != nil {
				slog.Warn("Failed to send WebSocket event, closing connection",
					"connection_id", c.id, "error", err)
				h.unregister(c)
			}
		}(c)
	}
}

// ActiveConnections returns the number of currently open connections.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.id] = c
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	_, ok := h.connections[c.id]
	delete(h.connections, c.id)
	h.mu.Unlock()
	if ok {
		c.cancel()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (h *Hub) sendJSON(c *Connection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = h.sendRaw(c, data)
}

func (h *Hub) sendRaw(c *Connection, data []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, h.writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}
