package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/atvirokodosprendimai/campuswatch/internal/application"
	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

// Event is the envelope pushed to every connected dashboard whenever the
// reconciled snapshot changes.
type Event struct {
	Type     string              `json:"type"`
	Snapshot domain.Snapshot     `json:"snapshot"`
	Alerts   []domain.Alert      `json:"alerts"`
	Report   domain.CampusReport `json:"report"`
}

type client struct {
	send chan []byte
	conn *websocket.Conn
}

// Hub fans the engine's snapshot updates out to websocket subscribers. Slow
// consumers are dropped rather than allowed to stall the rest.
type Hub struct {
	service *application.MonitorService

	mu         sync.Mutex
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

func NewHub(service *application.MonitorService) *Hub {
	return &Hub{
		service:    service,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
}

// Run pumps engine updates to subscribers until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	updates, cancel := h.service.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case snap := <-updates:
			h.fanOut(h.payload(snap))
		}
	}
}

func (h *Hub) payload(snap domain.Snapshot) []byte {
	event := Event{
		Type:     "snapshot",
		Snapshot: snap,
		Alerts:   h.service.Alerts(),
		Report:   h.service.Report(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: marshal event: %v", err)
		return nil
	}
	return data
}

func (h *Hub) fanOut(data []byte) {
	if data == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

var upgrader = websocket.Upgrader{}

// ServeWS upgrades the connection and streams snapshot events. The current
// state is sent immediately so a fresh dashboard never waits for the next
// poll cycle.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{send: make(chan []byte, 16), conn: conn}
	if initial := h.payload(h.service.Snapshot()); initial != nil {
		c.send <- initial
	}
	// The hub may already be shut down; never block on a dead Run loop.
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	// Read pump: the dashboard sends nothing meaningful, but reading
	// drains control frames and detects the close.
	go func() {
		defer func() {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	// Write pump.
	go func() {
		for message := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		}
		_ = conn.Close()
	}()
}
