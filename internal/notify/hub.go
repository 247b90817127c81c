package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub broadcasts events to connected websocket clients. Clients are
// write-only: anything they send is discarded, and a read error
// unregisters them.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
	onCount func(int)
}

// NewHub creates an empty hub. onCount, if not nil, is called with the
// client count after every change.
func NewHub(logger *slog.Logger, onCount func(int)) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
		onCount: onCount,
	}
}

// Name implements Publisher.
func (h *Hub) Name() string { return "websocket" }

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.notifyCount(n)
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr, "clients", n)

	go h.drain(conn)
}

// drain reads until the client goes away so close frames are processed.
func (h *Hub) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	if ok {
		h.notifyCount(n)
	}
}

// Publish writes the event to every client. Clients that fail the write
// are dropped. The returned error reports how many were dropped.
func (h *Hub) Publish(ctx context.Context, event *Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	h.mu.Lock()
	var failed []*websocket.Conn
	for conn := range h.clients {
		conn.SetWriteDeadline(deadline)
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			failed = append(failed, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range failed {
		h.remove(conn)
	}
	if len(failed) > 0 {
		return fmt.Errorf("dropped %d websocket clients", len(failed))
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(time.Second))
		h.remove(conn)
	}
	return nil
}

func (h *Hub) notifyCount(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}
