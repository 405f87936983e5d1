package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/urbanflow-sim/traffic-engine/internal/simulation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one live websocket connection, identified by a correlation id
// (grounded on other_examples/johnlacomba-Game-CitySim__main.go's
// Client/Hub pair).
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// hub fans a state snapshot out to every connected client after each
// server-driven tick.
type hub struct {
	mu      sync.Mutex
	clients map[*client]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*client]bool)}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) broadcast(snapshot simulation.StateSnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("httpapi: marshal snapshot: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (c *client) writer() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// reader drains and discards incoming frames so the connection's read
// deadline machinery stays serviced; this feed is push-only (spec §1's
// visualisation front-end is a read-only external collaborator).
func (c *client) reader(h *hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handleWebsocket upgrades to a websocket and streams a state() snapshot
// after every tick driven through the HTTP command surface.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("httpapi: websocket upgrade: %v", err)
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 16)}
	s.hub.register(c)
	go c.writer()

	initial, err := json.Marshal(s.sim.State())
	if err == nil {
		c.send <- initial
	}
	c.reader(s.hub)
}
