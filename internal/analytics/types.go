package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/chipzone/server/internal/geometry"
	"github.com/chipzone/server/internal/zones"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/chipzone/server/internal/analytics MovementStore,PointStore

// ErrInvalidWindow is returned when the analytics window is empty.
var ErrInvalidWindow = errors.New("invalid analytics window")

// AnimalType is a category animals can belong to. An animal may have several.
type AnimalType struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Visit is one entry of an animal's movement history.
type Visit struct {
	PointID   int64     `json:"locationPointId"`
	VisitedAt time.Time `json:"dateTimeOfVisitLocationPoint"`
}

// Timeline is everything analytics needs to know about one animal's
// movements. Visits are ordered by VisitedAt. The chipping location at
// ChippedAt is the implicit first position.
type Timeline struct {
	AnimalID        int64
	ChippingPointID int64
	ChippedAt       time.Time
	DiedAt          *time.Time
	Visits          []Visit
}

// MovementStore is the read side of the animal registry.
type MovementStore interface {
	AnimalTypes(ctx context.Context) ([]AnimalType, error)
	AnimalsByType(ctx context.Context, typeID int64) ([]int64, error)
	AnimalTimeline(ctx context.Context, animalID int64) (*Timeline, error)
}

// PointStore resolves point ids to coordinates.
type PointStore interface {
	Point(ctx context.Context, id int64) (geometry.GeoPoint, error)
}

// ZoneSource provides the geometry of the zone being analysed.
type ZoneSource interface {
	GetZone(ctx context.Context, id int64) (*zones.Zone, error)
}

// Observer receives the duration and outcome of every analytics query.
type Observer interface {
	ObserveAnalytics(elapsed time.Duration, err error)
}

// TypeAnalytics holds the counters of one animal type.
type TypeAnalytics struct {
	AnimalType      string `json:"animalType"`
	AnimalTypeID    int64  `json:"animalTypeId"`
	QuantityAnimals int    `json:"quantityAnimals"`
	AnimalsArrived  int    `json:"animalsArrived"`
	AnimalsGone     int    `json:"animalsGone"`
}

// Result is the occupancy report of a zone over a time window. Totals are
// sums over types, so an animal with several types is counted once per type.
type Result struct {
	TotalQuantityAnimals int             `json:"totalQuantityAnimals"`
	TotalAnimalsArrived  int             `json:"totalAnimalsArrived"`
	TotalAnimalsGone     int             `json:"totalAnimalsGone"`
	AnimalsAnalytics     []TypeAnalytics `json:"animalsAnalytics"`
}
