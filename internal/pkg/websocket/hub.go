package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Hub maintains the set of active subscribers per community and fans
// governance events out to them. A single Run goroutine consumes the
// register, unregister and broadcast channels, so events published for a
// community are delivered in publication order.
type Hub struct {
	// Registered clients organized by community ID
	clients map[int64]map[*Client]bool

	// Events queued for fan-out
	broadcast chan *Event

	// Register requests from new subscriber connections
	register chan *Client

	// Unregister requests from closing connections
	unregister chan *Client

	// Closed on shutdown; publishers stop blocking once it is closed
	quit chan struct{}

	closeOnce sync.Once

	// Guards the clients map for readers outside the Run goroutine
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		broadcast:  make(chan *Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations, unregistrations and broadcasts until Close is
// called. It must run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-h.quit:
			h.dropAll()
			return
		}
	}
}

// Close shuts the hub down and drops every subscription. Safe to call more
// than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
}

// Register subscribes a client to its community's events.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client. Unknown or already-removed clients are a no-op,
// so it is safe to call on every disconnect path.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Publish queues an event for delivery to all current subscribers of its
// community. It never reports delivery failures back to the caller; a
// subscriber that cannot keep up is dropped.
func (h *Hub) Publish(event *Event) {
	select {
	case h.broadcast <- event:
	case <-h.quit:
		h.logger.Debug().
			Str("type", string(event.Type)).
			Int64("communityID", event.CommunityID).
			Msg("Hub closed, event dropped")
	}
}

// SubscriberCount returns the number of live subscribers for a community.
func (h *Hub) SubscriberCount(communityID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[communityID])
}

// registerClient registers a new client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	communityID := client.communityID
	if _, ok := h.clients[communityID]; !ok {
		h.clients[communityID] = make(map[*Client]bool)
	}
	h.clients[communityID][client] = true

	h.logger.Info().
		Int64("communityID", communityID).
		Int64("userID", client.userID).
		Str("addr", client.addr).
		Msg("Subscriber registered")
}

// unregisterClient unregisters a client from the hub
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	communityID := client.communityID
	clients, ok := h.clients[communityID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.clients, communityID)
	}

	h.logger.Info().
		Int64("communityID", communityID).
		Int64("userID", client.userID).
		Str("addr", client.addr).
		Msg("Subscriber unregistered")
}

// broadcastEvent delivers an event to all subscribers of its community.
// A subscriber whose send buffer is full is dropped rather than allowed to
// stall delivery to the rest.
func (h *Hub) broadcastEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().
			Err(err).
			Int64("communityID", event.CommunityID).
			Str("type", string(event.Type)).
			Msg("Failed to marshal event for broadcast")
		return
	}

	var stalled []*Client

	h.mu.RLock()
	clients, ok := h.clients[event.CommunityID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	delivered := len(clients) - len(stalled)
	h.mu.RUnlock()

	for _, client := range stalled {
		h.logger.Warn().
			Int64("communityID", event.CommunityID).
			Int64("userID", client.userID).
			Msg("Dropping stalled subscriber")
		h.unregisterClient(client)
	}

	h.logger.Debug().
		Int64("communityID", event.CommunityID).
		Str("type", string(event.Type)).
		Int("subscriberCount", delivered).
		Msg("Event broadcast to community")
}

// dropAll removes every subscription; called once on shutdown.
func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for communityID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, communityID)
	}
}
