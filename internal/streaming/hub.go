package streaming

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/chipzone/server/internal/zones"
	"github.com/google/uuid"
)

const (
	clientSendBuffer = 64
	broadcastBuffer  = 256
)

// Message is the envelope of everything sent over the zone feed.
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is one feed connection. The transport drains Send.
type Client struct {
	ID             string
	UserID         int64
	SubscriptionID string
	send           chan []byte
}

// NewClient creates a client bound to a subscription.
func NewClient(userID int64, subscriptionID string) *Client {
	return &Client{
		ID:             uuid.NewString(),
		UserID:         userID,
		SubscriptionID: subscriptionID,
		send:           make(chan []byte, clientSendBuffer),
	}
}

// Send returns the channel of encoded messages for this client. It is
// closed when the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub fans committed zone changes out to feed clients. It implements
// zones.Notifier.
type Hub struct {
	manager *Manager

	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan zones.ZoneEvent
	done       chan struct{}
}

// NewHub creates a hub routing events through manager.
func NewHub(manager *Manager) *Hub {
	return &Hub{
		manager:    manager,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan zones.ZoneEvent, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Manager returns the subscription manager used by the hub.
func (h *Hub) Manager() *Manager {
	return h.manager
}

// Run starts the hub's main loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			log.Printf("[ZoneFeed] Client registered: id=%s user_id=%d", c.ID, c.UserID)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				h.drop(c)
			}
			h.mu.Unlock()
			log.Printf("[ZoneFeed] Client unregistered: id=%s", c.ID)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// drop removes c. The caller holds h.mu.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	h.manager.RemoveSubscription(c.SubscriptionID)
	close(c.send)
}

func (h *Hub) deliver(event zones.ZoneEvent) {
	message, err := EncodeMessage(string(event.Type), "", event)
	if err != nil {
		log.Printf("[ZoneFeed] Failed to encode %s for zone %d: %v", event.Type, event.ZoneID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !h.manager.ShouldDeliver(c.SubscriptionID, event) {
			continue
		}
		select {
		case c.send <- message:
		default:
			log.Printf("[ZoneFeed] Client %s is not keeping up, disconnecting", c.ID)
			h.drop(c)
		}
	}
}

// Register adds c to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ZoneChanged queues event for delivery. Events are dropped when the queue
// is full so zone mutations never wait on slow clients.
func (h *Hub) ZoneChanged(event zones.ZoneEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[ZoneFeed] Broadcast queue full, dropping %s for zone %d", event.Type, event.ZoneID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EncodeMessage wraps data in a Message envelope.
func EncodeMessage(messageType, id string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Message{Type: messageType, ID: id, Data: raw})
}
