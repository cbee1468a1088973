package zones

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/chipzone/server/internal/geometry"
)

// Policy selects which geometric conflicts block a mutation.
type Policy struct {
	// CheckContainmentOnUpdate makes updates reject containment in either
	// direction, as creation does. By default updates only reject edge
	// intersections with other zones.
	CheckContainmentOnUpdate bool
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy overrides the default conflict policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithNotifier publishes committed changes to n.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithObserver reports every mutation outcome to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// Store owns the set of zones and enforces the rules between them.
type Store struct {
	repo     Repository
	policy   Policy
	notifier Notifier
	observer Observer
}

// NewStore creates a Store on top of repo.
func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the conflict policy in effect.
func (s *Store) Policy() Policy { return s.policy }

// CreateZone validates ring and registers it as a new zone named name.
//
// Checks run in order: the name must be unused, the ring must be a simple
// polygon, no zone may have the same vertex set, and the ring may not
// intersect, contain or be contained by any zone.
func (s *Store) CreateZone(ctx context.Context, name string, ring []geometry.GeoPoint) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		err := fmt.Errorf("%w: zone name cannot be empty", ErrInvalidName)
		s.observe("create", err)
		return nil, err
	}
	normalized := geometry.NormalizeRing(ring)

	var created *Zone
	err := s.repo.Mutate(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.Zones(ctx)
		if err != nil {
			return fmt.Errorf("failed to load zones: %w", err)
		}
		collection := NewCollection(existing)

		if other, taken := collection.NameTaken(name, 0); taken {
			return fmt.Errorf("%w: %q is used by zone %d", ErrDuplicateName, name, other.ID)
		}
		if err := validateRing(normalized); err != nil {
			return err
		}
		if other, dup := collection.DuplicateOf(normalized, 0); dup {
			return fmt.Errorf("%w: same vertices as zone %d (%s)", ErrDuplicatePointSet, other.ID, other.Name)
		}
		if conflicts := collection.Conflicts(normalized, 0, true); len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		points, err := resolvePoints(ctx, tx, normalized)
		if err != nil {
			return err
		}
		id, err := tx.InsertZone(ctx, name, points)
		if err != nil {
			return fmt.Errorf("failed to insert zone: %w", err)
		}
		created = &Zone{ID: id, Name: name, AreaPoints: points}
		return nil
	})
	s.observe("create", err)
	if err != nil {
		log.Printf("[ZoneStore] create %q rejected: %v", name, err)
		return nil, err
	}

	log.Printf("[ZoneStore] created zone %d (%s) with %d vertices", created.ID, created.Name, len(created.AreaPoints))
	s.notify(ZoneEvent{Type: EventCreated, ZoneID: created.ID, Zone: created})
	return created, nil
}

// UpdateZone replaces the name and the whole ring of zone id.
//
// The ring is validated like on creation, but against other zones only edge
// intersections are rejected unless the policy asks for containment checks.
func (s *Store) UpdateZone(ctx context.Context, id int64, name string, ring []geometry.GeoPoint) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		err := fmt.Errorf("%w: zone name cannot be empty", ErrInvalidName)
		s.observe("update", err)
		return nil, err
	}
	normalized := geometry.NormalizeRing(ring)

	var updated *Zone
	err := s.repo.Mutate(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.Zones(ctx)
		if err != nil {
			return fmt.Errorf("failed to load zones: %w", err)
		}
		collection := NewCollection(existing)

		if _, ok := collection.Get(id); !ok {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		if other, taken := collection.NameTaken(name, id); taken {
			return fmt.Errorf("%w: %q is used by zone %d", ErrDuplicateName, name, other.ID)
		}
		if err := validateRing(normalized); err != nil {
			return err
		}
		if conflicts := collection.Conflicts(normalized, id, s.policy.CheckContainmentOnUpdate); len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		points, err := resolvePoints(ctx, tx, normalized)
		if err != nil {
			return err
		}
		if err := tx.ReplaceZone(ctx, id, name, points); err != nil {
			return fmt.Errorf("failed to replace zone %d: %w", id, err)
		}
		updated = &Zone{ID: id, Name: name, AreaPoints: points}
		return nil
	})
	s.observe("update", err)
	if err != nil {
		log.Printf("[ZoneStore] update of zone %d rejected: %v", id, err)
		return nil, err
	}

	s.notify(ZoneEvent{Type: EventUpdated, ZoneID: id, Zone: updated})
	return updated, nil
}

// DeleteZone removes zone id.
func (s *Store) DeleteZone(ctx context.Context, id int64) error {
	err := s.repo.Mutate(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteZone(ctx, id)
	})
	s.observe("delete", err)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[ZoneStore] delete of zone %d failed: %v", id, err)
		}
		return err
	}

	s.notify(ZoneEvent{Type: EventDeleted, ZoneID: id})
	return nil
}

// GetZone returns zone id or ErrNotFound.
func (s *Store) GetZone(ctx context.Context, id int64) (*Zone, error) {
	return s.repo.Zone(ctx, id)
}

func validateRing(ring []geometry.GeoPoint) error {
	for i, p := range ring {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: vertex %d: %v", ErrInvalidGeometry, i, err)
		}
	}
	if !geometry.IsSimplePolygon(ring) {
		return fmt.Errorf("%w: ring must have at least 3 distinct vertices and must not self-intersect or be collinear", ErrInvalidGeometry)
	}
	return nil
}

func resolvePoints(ctx context.Context, tx Tx, ring []geometry.GeoPoint) ([]Point, error) {
	points := make([]Point, len(ring))
	for i, p := range ring {
		id, err := tx.ResolveOrCreatePoint(ctx, p.Latitude, p.Longitude)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve point %v: %w", p, err)
		}
		points[i] = Point{ID: id, GeoPoint: p}
	}
	return points, nil
}

func (s *Store) observe(operation string, err error) {
	if s.observer != nil {
		s.observer.ObserveMutation(operation, err)
	}
}

func (s *Store) notify(event ZoneEvent) {
	if s.notifier != nil {
		s.notifier.ZoneChanged(event)
	}
}
