// SPDX-License-Identifier: MIT
package control

import (
	"net/http"
	"sync"

	applog "visualizer/internal/log"

	"github.com/gorilla/websocket"
)

// Request is one control message. Value is base64 in JSON.
type Request struct {
	Op    string `json:"op"` // "read", "write" or "list"
	UUID  string `json:"uuid,omitempty"`
	Value []byte `json:"value,omitempty"`
}

// Response answers exactly one Request.
type Response struct {
	UUID            string           `json:"uuid,omitempty"`
	Value           []byte           `json:"value,omitempty"`
	Error           string           `json:"error,omitempty"`
	Characteristics []Characteristic `json:"characteristics,omitempty"`
}

// Handler serves a Service over WebSocket connections, one request and one
// response at a time per connection.
type Handler struct {
	svc      *Service
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Control: Upgrade error: %v", err)
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	applog.Infof("Control: Client connected from %s", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
		applog.Infof("Control: Client %s disconnected", r.RemoteAddr)
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				applog.Debugf("Control: Read error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(h.Handle(req)); err != nil {
			applog.Debugf("Control: Write error: %v", err)
			return
		}
	}
}

// Handle executes one request against the service.
func (h *Handler) Handle(req Request) Response {
	resp := Response{UUID: req.UUID}
	var err error
	switch req.Op {
	case "list":
		resp.Characteristics = h.svc.Characteristics()
	case "read":
		resp.Value, err = h.svc.Read(req.UUID)
	case "write":
		err = h.svc.Write(req.UUID, req.Value)
	default:
		resp.Error = "unknown op " + req.Op
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// Close disconnects every client.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.Close()
	}
	return nil
}
