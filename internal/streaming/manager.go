package streaming

import (
	"fmt"
	"sync"
	"time"

	"github.com/chipzone/server/internal/geometry"
	"github.com/chipzone/server/internal/zones"
	"github.com/google/uuid"
)

// Manager tracks what each feed subscription wants to hear about.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
}

// Subscription tracks an individual client's filter and the zones it has
// been told about inside its area.
type Subscription struct {
	ID        string
	UserID    int64
	Request   SubscriptionRequest
	ZoneIDs   map[int64]bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AreaFilter limits a subscription to zones whose bounding box overlaps it.
type AreaFilter struct {
	MinLatitude  float64 `json:"min_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MaxLongitude float64 `json:"max_longitude"`
}

// SubscriptionRequest is sent by clients to choose which zone changes they
// receive. A nil Area means everywhere and no Events means every event type.
type SubscriptionRequest struct {
	Area   *AreaFilter       `json:"area,omitempty"`
	Events []zones.EventType `json:"events,omitempty"`
}

// SubscriptionPlan captures the server response for a subscription.
type SubscriptionPlan struct {
	SubscriptionID string              `json:"subscription_id"`
	Request        SubscriptionRequest `json:"request"`
}

// NewManager builds a subscription manager instance.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*Subscription),
	}
}

func (a *AreaFilter) box() geometry.BoundingBox {
	return geometry.BoundingBox{
		MinLatitude:  a.MinLatitude,
		MinLongitude: a.MinLongitude,
		MaxLatitude:  a.MaxLatitude,
		MaxLongitude: a.MaxLongitude,
	}
}

// Validate checks the request's area and event types.
func (r SubscriptionRequest) Validate() error {
	if r.Area != nil {
		corners := []geometry.GeoPoint{
			{Latitude: r.Area.MinLatitude, Longitude: r.Area.MinLongitude},
			{Latitude: r.Area.MaxLatitude, Longitude: r.Area.MaxLongitude},
		}
		for _, c := range corners {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("invalid area: %w", err)
			}
		}
		if r.Area.MinLatitude > r.Area.MaxLatitude || r.Area.MinLongitude > r.Area.MaxLongitude {
			return fmt.Errorf("invalid area: minimum exceeds maximum")
		}
	}
	for _, e := range r.Events {
		switch e {
		case zones.EventCreated, zones.EventUpdated, zones.EventDeleted:
		default:
			return fmt.Errorf("unknown event type %q", e)
		}
	}
	return nil
}

// PlanSubscription validates the request and registers the subscription.
func (m *Manager) PlanSubscription(userID int64, req SubscriptionRequest) (*SubscriptionPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	subscription := &Subscription{
		ID:        "sub_" + uuid.NewString(),
		UserID:    userID,
		Request:   req,
		ZoneIDs:   make(map[int64]bool),
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.subscriptions[subscription.ID] = subscription
	m.mu.Unlock()

	return &SubscriptionPlan{SubscriptionID: subscription.ID, Request: req}, nil
}

// UpdateSubscription replaces the filter of a subscription owned by userID.
// Zones known under the previous area are forgotten.
func (m *Manager) UpdateSubscription(userID int64, subscriptionID string, req SubscriptionRequest) (*SubscriptionPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("subscription %s not found", subscriptionID)
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("subscription %s does not belong to user %d", subscriptionID, userID)
	}

	sub.Request = req
	sub.ZoneIDs = make(map[int64]bool)
	sub.UpdatedAt = time.Now()
	return &SubscriptionPlan{SubscriptionID: sub.ID, Request: req}, nil
}

// RemoveSubscription forgets a subscription.
func (m *Manager) RemoveSubscription(subscriptionID string) {
	m.mu.Lock()
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()
}

// GetSubscription returns a copy of a subscription.
func (m *Manager) GetSubscription(subscriptionID string) (Subscription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return Subscription{}, false
	}
	copied := *sub
	copied.ZoneIDs = make(map[int64]bool, len(sub.ZoneIDs))
	for id := range sub.ZoneIDs {
		copied.ZoneIDs[id] = true
	}
	return copied, true
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// ShouldDeliver reports whether event must be sent to the subscription and
// updates the set of zones the subscription knows inside its area. A zone
// moving out of the area, or deleted, is delivered once to subscriptions
// that knew it.
func (m *Manager) ShouldDeliver(subscriptionID string, event zones.ZoneEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return false
	}

	relevant := sub.track(event)
	return relevant && sub.wants(event.Type)
}

func (s *Subscription) track(event zones.ZoneEvent) bool {
	if s.Request.Area == nil {
		return true
	}

	known := s.ZoneIDs[event.ZoneID]
	if event.Type == zones.EventDeleted || event.Zone == nil {
		delete(s.ZoneIDs, event.ZoneID)
		return known
	}

	if geometry.Bounds(event.Zone.Ring()).Overlaps(s.Request.Area.box()) {
		s.ZoneIDs[event.ZoneID] = true
		return true
	}
	delete(s.ZoneIDs, event.ZoneID)
	return known
}

func (s *Subscription) wants(t zones.EventType) bool {
	if len(s.Request.Events) == 0 {
		return true
	}
	for _, e := range s.Request.Events {
		if e == t {
			return true
		}
	}
	return false
}
