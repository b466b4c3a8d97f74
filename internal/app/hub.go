package app

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"DiffDrive/internal/model"
	"DiffDrive/internal/parser"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const writeWait = time.Second

// Hub broadcasts telemetry snapshots to every connected websocket client.
type Hub struct {
	parser  parser.Parser
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates an empty hub that encodes snapshots with p.
func NewHub(p parser.Parser) *Hub {
	return &Hub{parser: p, clients: map[*websocket.Conn]bool{}}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[hub] ws upgrade err: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	log.Printf("[hub] client %s connected", r.RemoteAddr)

	// read loop to detect disconnect
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.Close(); err != nil {
		log.Printf("[hub] warning: failed to close websocket: %v", err)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish encodes t and sends it to all clients.
func (h *Hub) Publish(t model.Telemetry) {
	line, err := h.parser.EncodeTelemetry(t)
	if err != nil {
		log.Printf("[hub] encode telemetry err: %v", err)
		return
	}
	h.broadcast(line)
}

func (h *Hub) broadcast(msg string) {
	h.mu.Lock()
	var dead []*websocket.Conn
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			dead = append(dead, c)
		}
	}
	h.mu.Unlock()
	for _, c := range dead {
		h.drop(c)
	}
}

// Run publishes every snapshot received on in until ctx is done or in closes.
func (h *Hub) Run(ctx context.Context, in <-chan model.Telemetry) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			h.Publish(t)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.drop(c)
	}
}
