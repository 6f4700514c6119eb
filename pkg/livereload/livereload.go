// Package livereload pushes mock reload notifications to connected browsers
// over WebSocket.
//
// The admin app opens a socket to the hub and refetches its data when a
// {"type":"reload"} message arrives. Clients only listen; anything they send
// is discarded.
package livereload

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/hemaweb/featmock/pkg/logging"
	"github.com/hemaweb/featmock/pkg/metrics"
	"github.com/hemaweb/featmock/pkg/reload"
)

// Message types.
const (
	TypeConnected = "connected"
	TypeReload    = "reload"
)

// DefaultWriteTimeout bounds a single send to one client.
const DefaultWriteTimeout = 2 * time.Second

// Message is the JSON payload sent to clients.
type Message struct {
	Type      string   `json:"type"`
	Routes    int      `json:"routes"`
	Files     []string `json:"files"`
	Error     string   `json:"error,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// ReloadMessage converts a reload event into a client message.
func ReloadMessage(ev reload.Event) Message {
	msg := Message{
		Type:      TypeReload,
		Routes:    ev.Routes,
		Files:     ev.Files,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if msg.Files == nil {
		msg.Files = []string{}
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

// Hub tracks connected clients and broadcasts to them.
type Hub struct {
	log          *slog.Logger
	metrics      *metrics.Mock
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewHub creates an empty hub. Both arguments may be nil.
func NewHub(log *slog.Logger, m *metrics.Mock) *Hub {
	return &Hub{
		log:          logging.Component(log, "livereload"),
		metrics:      m,
		writeTimeout: DefaultWriteTimeout,
		clients:      make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and holds the connection until the client
// goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The admin dev server runs on another origin.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &client{conn: conn, cancel: cancel}
	if !h.add(c) {
		cancel()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.remove(c)

	h.log.Debug("client connected", "remote", r.RemoteAddr)
	hello, _ := json.Marshal(Message{Type: TypeConnected, Files: []string{}, Timestamp: time.Now().UTC().Format(time.RFC3339)})
	if err := h.write(ctx, c, hello); err != nil {
		return
	}

	// CloseRead discards client frames and cancels when the peer closes.
	ctx = conn.CloseRead(ctx)
	<-ctx.Done()
	h.log.Debug("client disconnected", "remote", r.RemoteAddr)
}

// Broadcast sends msg to every client. Clients that cannot be written to
// within the write timeout are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode live-reload message", "error", err)
		return
	}

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.write(context.Background(), c, data); err != nil {
				h.log.Debug("dropping live-reload client", "error", err)
				h.remove(c)
			}
		}()
	}
	wg.Wait()
	h.log.Debug("live-reload broadcast", "type", msg.Type, "clients", len(clients))
}

// Notify broadcasts a reload event; pass it to Reloader.OnReload.
func (h *Hub) Notify(ev reload.Event) {
	h.Broadcast(ReloadMessage(ev))
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close rejects new clients and sends a going-away close to every connected
// one without waiting for the handshakes to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	clear(h.clients)
	h.mu.Unlock()

	h.metrics.AddLiveClients(-len(clients))
	for _, c := range clients {
		go func() {
			_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			c.cancel()
		}()
	}
}

func (h *Hub) write(ctx context.Context, c *client, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.AddLiveClients(1)
	return true
}

// remove drops c once; later calls are no-ops.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.metrics.AddLiveClients(-1)
	c.cancel()
	_ = c.conn.CloseNow()
}
