package analytics

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/chipzone/server/internal/geometry"
)

// Engine computes zone occupancy analytics from the movement history of
// chipped animals. Every call recomputes from the stores.
type Engine struct {
	zones     ZoneSource
	movements MovementStore
	points    PointStore
	observer  Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports the duration and outcome of each query to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine creates an analytics engine over the given collaborators.
func NewEngine(zones ZoneSource, movements MovementStore, points PointStore, opts ...Option) *Engine {
	e := &Engine{
		zones:     zones,
		movements: movements,
		points:    points,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// animalStatus is the contribution of one animal to its types' counters.
type animalStatus struct {
	present bool
	arrived bool
	gone    bool
}

// query holds the per-call state: the zone ring, the window and the memo
// tables shared by all animal types.
type query struct {
	ring     []geometry.GeoPoint
	start    time.Time
	end      time.Time
	inside   map[int64]bool
	statuses map[int64]animalStatus
}

// ComputeAnalytics reports, per animal type, how many animals were in the
// zone during [start, end), how many arrived and how many left.
func (e *Engine) ComputeAnalytics(ctx context.Context, zoneID int64, start, end time.Time) (result *Result, err error) {
	began := time.Now()
	defer func() {
		if e.observer != nil {
			e.observer.ObserveAnalytics(time.Since(began), err)
		}
	}()

	if !end.After(start) {
		return nil, fmt.Errorf("%w: endDate %s is not after startDate %s",
			ErrInvalidWindow, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	zone, err := e.zones.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	types, err := e.movements.AnimalTypes(ctx)
	if err != nil {
		log.Printf("[ZoneAnalytics] Failed to list animal types for zone %d: %v", zoneID, err)
		return nil, fmt.Errorf("failed to list animal types: %w", err)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })

	q := &query{
		ring:     zone.Ring(),
		start:    start,
		end:      end,
		inside:   make(map[int64]bool),
		statuses: make(map[int64]animalStatus),
	}

	result = &Result{AnimalsAnalytics: []TypeAnalytics{}}
	for _, animalType := range types {
		row, err := e.typeAnalytics(ctx, q, animalType)
		if err != nil {
			log.Printf("[ZoneAnalytics] Failed to compute analytics for zone %d, type %d: %v", zoneID, animalType.ID, err)
			return nil, err
		}
		if row.QuantityAnimals == 0 && row.AnimalsArrived == 0 && row.AnimalsGone == 0 {
			continue
		}
		result.AnimalsAnalytics = append(result.AnimalsAnalytics, row)
		result.TotalQuantityAnimals += row.QuantityAnimals
		result.TotalAnimalsArrived += row.AnimalsArrived
		result.TotalAnimalsGone += row.AnimalsGone
	}
	return result, nil
}

func (e *Engine) typeAnalytics(ctx context.Context, q *query, animalType AnimalType) (TypeAnalytics, error) {
	row := TypeAnalytics{
		AnimalType:   animalType.Type,
		AnimalTypeID: animalType.ID,
	}

	animalIDs, err := e.movements.AnimalsByType(ctx, animalType.ID)
	if err != nil {
		return row, fmt.Errorf("failed to list animals of type %d: %w", animalType.ID, err)
	}

	for _, animalID := range animalIDs {
		status, ok := q.statuses[animalID]
		if !ok {
			status, err = e.animalStatus(ctx, q, animalID)
			if err != nil {
				return row, err
			}
			q.statuses[animalID] = status
		}
		if status.present {
			row.QuantityAnimals++
		}
		if status.arrived {
			row.AnimalsArrived++
		}
		if status.gone {
			row.AnimalsGone++
		}
	}
	return row, nil
}

// timelineEntry is one position of an animal at a point in time.
type timelineEntry struct {
	pointID int64
	at      time.Time
}

// entries flattens a timeline into time order with the chipping location
// first. Entries after the animal's death are dropped.
func entries(t *Timeline) []timelineEntry {
	out := make([]timelineEntry, 0, len(t.Visits)+1)
	out = append(out, timelineEntry{pointID: t.ChippingPointID, at: t.ChippedAt})
	for _, v := range t.Visits {
		out = append(out, timelineEntry{pointID: v.PointID, at: v.VisitedAt})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })

	if t.DiedAt != nil {
		kept := out[:0]
		for _, entry := range out {
			if entry.at.After(*t.DiedAt) {
				break
			}
			kept = append(kept, entry)
		}
		out = kept
	}
	return out
}

func (e *Engine) animalStatus(ctx context.Context, q *query, animalID int64) (animalStatus, error) {
	var status animalStatus

	timeline, err := e.movements.AnimalTimeline(ctx, animalID)
	if err != nil {
		return status, fmt.Errorf("failed to load timeline of animal %d: %w", animalID, err)
	}
	if timeline.DiedAt != nil && timeline.DiedAt.Before(q.start) {
		return status, nil
	}

	var (
		prevKnown     bool
		prevInside    bool
		insideAtStart bool
	)
	for _, entry := range entries(timeline) {
		if !entry.at.Before(q.end) {
			break
		}
		inside, err := e.pointInside(ctx, q, entry.pointID)
		if err != nil {
			return status, err
		}

		if entry.at.Before(q.start) {
			insideAtStart = inside
		} else if inside {
			status.present = true
			if !prevKnown || !prevInside {
				status.arrived = true
			}
		} else if prevKnown && prevInside {
			status.gone = true
		}
		prevKnown = true
		prevInside = inside
	}
	if insideAtStart {
		status.present = true
	}
	return status, nil
}

func (e *Engine) pointInside(ctx context.Context, q *query, pointID int64) (bool, error) {
	if inside, ok := q.inside[pointID]; ok {
		return inside, nil
	}
	p, err := e.points.Point(ctx, pointID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve point %d: %w", pointID, err)
	}
	inside := geometry.PointInPolygon(q.ring, p)
	q.inside[pointID] = inside
	return inside, nil
}
