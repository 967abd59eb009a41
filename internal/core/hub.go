package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Hub fans message change events out to registered subscribers.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	done       chan struct{}
	clients    map[*Client]struct{}
	log        *zerolog.Logger
}

// NewHub creates a new hub. Call Run before publishing.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		log:        logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
// On exit every client's Events channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			close(c.Events)
			delete(h.clients, c)
		}
		close(h.done)
	}()

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("subscriber registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Events)
				h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("subscriber unregistered")
			}
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) deliver(ev *Event) {
	for c := range h.clients {
		select {
		case c.Events <- ev:
		default:
			// Drop if slow consumer.
			h.log.Warn().Str("client_id", c.ID).Stringer("kind", ev.Kind).Msg("subscriber buffer full, event dropped")
		}
	}
}

// RegisterClient adds a subscriber.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient removes a subscriber and closes its Events channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues ev for every subscriber.
func (h *Hub) Publish(ev *Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}
