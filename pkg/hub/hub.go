package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned when registering with a hub that has stopped.
var ErrStopped = errors.New("hub: stopped")

// Hub maintains the set of active clients and broadcasts messages to them.
// Only the Run goroutine mutates the client set.
type Hub struct {
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// mu guards reads of the client count from outside Run.
	mu      sync.RWMutex
	count   int
	running bool
}

// New creates a Hub. Call Run to start delivering.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger.With("component", "hub", "hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run delivers messages until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		for client := range h.clients {
			h.remove(client)
		}
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount()
			h.logger.Info("client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
				h.logger.Info("client disconnected", "clients", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.remove(client)
					h.logger.Warn("dropped slow client", "clients", len(h.clients))
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Broadcast queues msg for every client. It never blocks: when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Hub) add(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrStopped
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
