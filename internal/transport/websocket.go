// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	applog "pluck/internal/log"
	"pluck/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	clientSendBuffer = 16
	writeTimeout     = time.Second
	maxMessageSize   = 512
)

var ErrHubClosed = errors.New("websocket hub closed")

// Hub implements the Transport interface for WebSocket clients. Frames are
// broadcast as JSON; clients may send Message values to pluck strings.
// Hub is an http.Handler and is mounted on the HTTP router.
type Hub struct {
	upgrader websocket.Upgrader
	plucker  Plucker

	mu      sync.Mutex
	clients map[string]*wsClient
	closed  bool
}

type wsClient struct {
	id        string
	conn      *websocket.Conn
	send      chan any
	closeOnce sync.Once
}

// NewHub creates a Hub. plucker may be nil to make the feed read-only.
func NewHub(plucker Plucker) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is handled by the router.
			},
		},
		plucker: plucker,
		clients: make(map[string]*wsClient),
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocket: Upgrade error: %v", err)
		return
	}

	c := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan any, clientSendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	applog.Infof("WebSocket: Client %s connected from %s, total: %d", c.id, r.RemoteAddr, total)

	go h.writePump(c)
	go h.readPump(c)
}

// readPump handles client messages until the connection fails.
func (h *Hub) readPump(c *wsClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				applog.Debugf("WebSocket: Client %s read error: %v", c.id, err)
			}
			return
		}
		h.handleMessage(c, msg)
	}
}

func (h *Hub) handleMessage(c *wsClient, msg Message) {
	if msg.Type != PluckType || h.plucker == nil {
		applog.Debugf("WebSocket: Client %s sent unsupported message %q", c.id, msg.Type)
		return
	}
	key, size := utf8.DecodeRuneInString(msg.Key)
	if size == 0 || key == utf8.RuneError {
		return
	}
	if !h.plucker.Push(key) {
		applog.Debugf("WebSocket: Trigger queue full, dropped %q from %s", key, c.id)
	}
}

// writePump sends queued frames to one client.
func (h *Hub) writePump(c *wsClient) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(data); err != nil {
			applog.Debugf("WebSocket: Error sending to client %s: %v", c.id, err)
			c.conn.Close()
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.conn.Close()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.closeOnce.Do(func() { close(c.send) })
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.conn.Close()
	metrics.WebSocketClients.Set(float64(total))
	applog.Infof("WebSocket: Client %s disconnected, total: %d", c.id, total)
}

// Send queues data for every client. A client whose queue is full misses
// this frame.
func (h *Hub) Send(data any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			applog.Debugf("WebSocket: Client %s is slow, frame dropped", c.id)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Further Sends fail with ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	applog.Infof("WebSocket: Closing hub with %d clients", len(h.clients))
	for id, c := range h.clients {
		c.closeOnce.Do(func() { close(c.send) })
		delete(h.clients, id)
	}
	metrics.WebSocketClients.Set(0)
	return nil
}

// Ensure Hub satisfies the interface
var _ Transport = (*Hub)(nil)
