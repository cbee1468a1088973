package zones

import (
	"context"

	"github.com/chipzone/server/internal/geometry"
)

// Point is a stored coordinate record. Zones reference points by id, and a
// point is shared by every zone that has a vertex at exactly its coordinates.
type Point struct {
	ID int64 `json:"id"`
	geometry.GeoPoint
}

// Zone is a named simple polygon. AreaPoints is the open ring: the last
// vertex connects back to the first implicitly.
type Zone struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	AreaPoints []Point `json:"areaPoints"`
}

// Ring returns the zone's vertices without point ids.
func (z *Zone) Ring() []geometry.GeoPoint {
	ring := make([]geometry.GeoPoint, len(z.AreaPoints))
	for i, p := range z.AreaPoints {
		ring[i] = p.GeoPoint
	}
	return ring
}

// Repository persists zones and the points they reference.
//
// Mutate runs fn inside a single unit of work: fn observes a consistent view
// of all zones and no other Mutate call interleaves with it. When fn returns
// an error nothing it wrote is kept.
type Repository interface {
	Zone(ctx context.Context, id int64) (*Zone, error)
	Mutate(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write view handed to Repository.Mutate.
type Tx interface {
	Zones(ctx context.Context) ([]Zone, error)
	ResolveOrCreatePoint(ctx context.Context, latitude, longitude float64) (int64, error)
	InsertZone(ctx context.Context, name string, ring []Point) (int64, error)
	ReplaceZone(ctx context.Context, id int64, name string, ring []Point) error
	DeleteZone(ctx context.Context, id int64) error
}

// EventType names a zone change published to a Notifier.
type EventType string

const (
	EventCreated EventType = "zone_created"
	EventUpdated EventType = "zone_updated"
	EventDeleted EventType = "zone_deleted"
)

// ZoneEvent describes a committed zone mutation. Zone is nil for deletions.
type ZoneEvent struct {
	Type   EventType `json:"type"`
	ZoneID int64     `json:"zone_id"`
	Zone   *Zone     `json:"zone,omitempty"`
}

// Notifier receives committed zone changes.
type Notifier interface {
	ZoneChanged(event ZoneEvent)
}

// Observer receives the outcome of every mutation attempt.
type Observer interface {
	ObserveMutation(operation string, err error)
}
