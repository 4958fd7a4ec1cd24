// Package ws is the simulator's WebSocket fan-out. Every connected dashboard
// receives each broadcast frame; idle or broken connections are dropped by
// the ping/pong keepalive.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPingInterval = 20 * time.Second
	pongWait            = 60 * time.Second
	writeWait           = 3 * time.Second
)

// Hub fans frames out to connected clients. Register, unregister and
// broadcast all go through the Run loop, so no lock guards the client set.
type Hub struct {
	log          *zap.Logger
	pingInterval time.Duration

	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	upgrader   websocket.Upgrader

	count atomic.Int32
}

// NewHub allocates a hub. Call Run in a goroutine to start the event loop.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:          log,
		pingInterval: defaultPingInterval,
		clients:      make(map[*websocket.Conn]struct{}),
		register:     make(chan *websocket.Conn, 16),
		unregister:   make(chan *websocket.Conn, 16),
		broadcast:    make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Clients reports how many dashboards are connected.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int32(len(h.clients)))
			h.log.Debug("dashboard connected", zap.String("remote", c.RemoteAddr().String()))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.drop(c)
				}
			}

		case <-ping.C:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *websocket.Conn) {
	delete(h.clients, c)
	h.count.Store(int32(len(h.clients)))
	_ = c.Close()
}

// ServeHTTP upgrades the request and registers the connection. Incoming
// messages are read and discarded; the read only exists to see pongs and
// the client going away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast queues a raw text frame. When the queue is full the frame is
// dropped rather than blocking the caller.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast queue full, frame dropped")
	}
}

// BroadcastJSON marshals v and queues it like Broadcast.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal broadcast frame", zap.Error(err))
		return
	}
	h.Broadcast(b)
}
