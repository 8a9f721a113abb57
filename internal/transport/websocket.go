// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"slices"
	"sync"
	"time"

	applog "visualizer/internal/log"

	"github.com/gorilla/websocket"
)

var wsLog = applog.For("WebSocketTransport")

const (
	clientQueue  = 4 // frames buffered per client before dropping
	writeTimeout = time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketTransport mirrors every frame to connected browsers as a binary
// message. It is an http.Handler; mount it on any mux. A slow client only
// loses its own frames; Send never blocks the scheduler.
type WebSocketTransport struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

var (
	_ Transport    = (*WebSocketTransport)(nil)
	_ http.Handler = (*WebSocketTransport)(nil)
)

// NewWebSocketTransport creates a broadcaster with no clients.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // frames are public, any origin may watch
			},
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client.
func (t *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsLog.Warnf("Upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientQueue)}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.clients[c] = struct{}{}
	n := len(t.clients)
	t.mu.Unlock()
	wsLog.Infof("Client connected from %s, total: %d", r.RemoteAddr, n)

	go t.writeLoop(c)
	go t.readLoop(c)
}

// readLoop discards incoming messages and unregisters the client on error.
func (t *WebSocketTransport) readLoop(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			t.remove(c)
			return
		}
	}
}

func (t *WebSocketTransport) writeLoop(c *wsClient) {
	for frame := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			wsLog.Debugf("Error sending to client: %v", err)
			t.remove(c)
			return
		}
	}
}

func (t *WebSocketTransport) remove(c *wsClient) {
	t.mu.Lock()
	if _, ok := t.clients[c]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.clients, c)
	close(c.send)
	n := len(t.clients)
	t.mu.Unlock()

	c.conn.Close()
	wsLog.Infof("Client disconnected, total: %d", n)
}

// Clients returns the number of connected clients.
func (t *WebSocketTransport) Clients() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// Send queues a copy of frame for every client, dropping it for clients
// whose queue is full.
func (t *WebSocketTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.clients) == 0 {
		return nil
	}
	msg := slices.Clone(frame)
	for c := range t.clients {
		select {
		case c.send <- msg:
		default:
			wsLog.Debugf("Dropping frame for slow client %s", c.conn.RemoteAddr())
		}
	}
	return nil
}

// Close disconnects every client. The handler rejects new clients afterwards.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	clients := t.clients
	t.clients = make(map[*wsClient]struct{})
	for c := range clients {
		close(c.send)
	}
	t.mu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
	wsLog.Infof("Closed %d clients", len(clients))
	return nil
}
