package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chipzone/server/internal/analytics"
	"github.com/chipzone/server/internal/geometry"
	"github.com/chipzone/server/internal/zones"
)

// MemoryStorage keeps points, zones and animal movements in process. It
// implements zones.Repository, analytics.MovementStore and
// analytics.PointStore.
//
// State is copy-on-write: writers build a new snapshot and swap it in, so
// readers never observe a partially applied mutation.
type MemoryStorage struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	spatial   *spatialState
	movements *movementState
}

type memoryZone struct {
	name     string
	pointIDs []int64
}

type spatialState struct {
	nextPointID int64
	nextZoneID  int64
	points      map[int64]geometry.GeoPoint
	pointIDs    map[geometry.GeoPoint]int64
	zones       map[int64]memoryZone
}

type movementState struct {
	nextTypeID   int64
	nextAnimalID int64
	types        map[int64]analytics.AnimalType
	members      map[int64][]int64
	animals      map[int64]analytics.Timeline
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		spatial: &spatialState{
			points:   make(map[int64]geometry.GeoPoint),
			pointIDs: make(map[geometry.GeoPoint]int64),
			zones:    make(map[int64]memoryZone),
		},
		movements: &movementState{
			types:   make(map[int64]analytics.AnimalType),
			members: make(map[int64][]int64),
			animals: make(map[int64]analytics.Timeline),
		},
	}
}

func (s *spatialState) clone() *spatialState {
	c := &spatialState{
		nextPointID: s.nextPointID,
		nextZoneID:  s.nextZoneID,
		points:      make(map[int64]geometry.GeoPoint, len(s.points)),
		pointIDs:    make(map[geometry.GeoPoint]int64, len(s.pointIDs)),
		zones:       make(map[int64]memoryZone, len(s.zones)),
	}
	for id, p := range s.points {
		c.points[id] = p
	}
	for p, id := range s.pointIDs {
		c.pointIDs[p] = id
	}
	for id, z := range s.zones {
		c.zones[id] = z
	}
	return c
}

func (s *spatialState) resolvePoint(p geometry.GeoPoint) int64 {
	if id, ok := s.pointIDs[p]; ok {
		return id
	}
	s.nextPointID++
	s.points[s.nextPointID] = p
	s.pointIDs[p] = s.nextPointID
	return s.nextPointID
}

func (s *spatialState) zone(id int64) (zones.Zone, bool) {
	mz, ok := s.zones[id]
	if !ok {
		return zones.Zone{}, false
	}
	z := zones.Zone{ID: id, Name: mz.name, AreaPoints: make([]zones.Point, len(mz.pointIDs))}
	for i, pid := range mz.pointIDs {
		z.AreaPoints[i] = zones.Point{ID: pid, GeoPoint: s.points[pid]}
	}
	return z, true
}

func (s *spatialState) nameTaken(name string, exclude int64) bool {
	for id, z := range s.zones {
		if id != exclude && z.name == name {
			return true
		}
	}
	return false
}

func (s *movementState) clone() *movementState {
	c := &movementState{
		nextTypeID:   s.nextTypeID,
		nextAnimalID: s.nextAnimalID,
		types:        make(map[int64]analytics.AnimalType, len(s.types)),
		members:      make(map[int64][]int64, len(s.members)),
		animals:      make(map[int64]analytics.Timeline, len(s.animals)),
	}
	for id, t := range s.types {
		c.types[id] = t
	}
	for id, m := range s.members {
		c.members[id] = m
	}
	for id, a := range s.animals {
		c.animals[id] = a
	}
	return c
}

func (m *MemoryStorage) snapshot() (*spatialState, *movementState) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spatial, m.movements
}

func (m *MemoryStorage) swap(spatial *spatialState, movements *movementState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if spatial != nil {
		m.spatial = spatial
	}
	if movements != nil {
		m.movements = movements
	}
}

// Zone returns zone id or zones.ErrNotFound.
func (m *MemoryStorage) Zone(ctx context.Context, id int64) (*zones.Zone, error) {
	spatial, _ := m.snapshot()
	z, ok := spatial.zone(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", zones.ErrNotFound, id)
	}
	return &z, nil
}

// Mutate applies fn to a private copy of the zone state and publishes the
// copy only when fn succeeds. Mutations are serialized.
func (m *MemoryStorage) Mutate(ctx context.Context, fn func(ctx context.Context, tx zones.Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	spatial, _ := m.snapshot()
	draft := spatial.clone()
	if err := fn(ctx, &memoryTx{state: draft}); err != nil {
		return err
	}
	m.swap(draft, nil)
	return nil
}

type memoryTx struct {
	state *spatialState
}

func (t *memoryTx) Zones(ctx context.Context) ([]zones.Zone, error) {
	ids := make([]int64, 0, len(t.state.zones))
	for id := range t.state.zones {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	list := make([]zones.Zone, 0, len(ids))
	for _, id := range ids {
		z, _ := t.state.zone(id)
		list = append(list, z)
	}
	return list, nil
}

func (t *memoryTx) ResolveOrCreatePoint(ctx context.Context, latitude, longitude float64) (int64, error) {
	return t.state.resolvePoint(geometry.GeoPoint{Latitude: latitude, Longitude: longitude}), nil
}

func (t *memoryTx) InsertZone(ctx context.Context, name string, ring []zones.Point) (int64, error) {
	if t.state.nameTaken(name, 0) {
		return 0, fmt.Errorf("%w: %q", zones.ErrDuplicateName, name)
	}
	t.state.nextZoneID++
	t.state.zones[t.state.nextZoneID] = memoryZone{name: name, pointIDs: pointIDs(ring)}
	return t.state.nextZoneID, nil
}

func (t *memoryTx) ReplaceZone(ctx context.Context, id int64, name string, ring []zones.Point) error {
	if _, ok := t.state.zones[id]; !ok {
		return fmt.Errorf("%w: %d", zones.ErrNotFound, id)
	}
	if t.state.nameTaken(name, id) {
		return fmt.Errorf("%w: %q", zones.ErrDuplicateName, name)
	}
	t.state.zones[id] = memoryZone{name: name, pointIDs: pointIDs(ring)}
	return nil
}

func (t *memoryTx) DeleteZone(ctx context.Context, id int64) error {
	if _, ok := t.state.zones[id]; !ok {
		return fmt.Errorf("%w: %d", zones.ErrNotFound, id)
	}
	delete(t.state.zones, id)
	return nil
}

func pointIDs(ring []zones.Point) []int64 {
	ids := make([]int64, len(ring))
	for i, p := range ring {
		ids[i] = p.ID
	}
	return ids
}

// PointCount returns the number of stored points.
func (m *MemoryStorage) PointCount() int {
	spatial, _ := m.snapshot()
	return len(spatial.points)
}

// Point returns the coordinates of point id.
func (m *MemoryStorage) Point(ctx context.Context, id int64) (geometry.GeoPoint, error) {
	spatial, _ := m.snapshot()
	p, ok := spatial.points[id]
	if !ok {
		return geometry.GeoPoint{}, fmt.Errorf("%w: %d", ErrPointNotFound, id)
	}
	return p, nil
}

func (m *MemoryStorage) AnimalTypes(ctx context.Context) ([]analytics.AnimalType, error) {
	_, movements := m.snapshot()
	types := make([]analytics.AnimalType, 0, len(movements.types))
	for _, t := range movements.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types, nil
}

func (m *MemoryStorage) AnimalsByType(ctx context.Context, typeID int64) ([]int64, error) {
	_, movements := m.snapshot()
	return append([]int64(nil), movements.members[typeID]...), nil
}

func (m *MemoryStorage) AnimalTimeline(ctx context.Context, animalID int64) (*analytics.Timeline, error) {
	_, movements := m.snapshot()
	timeline, ok := movements.animals[animalID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrAnimalNotFound, animalID)
	}
	timeline.Visits = append([]analytics.Visit(nil), timeline.Visits...)
	return &timeline, nil
}

// AddAnimalType registers an animal type and returns its id.
func (m *MemoryStorage) AddAnimalType(name string) int64 {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	_, movements := m.snapshot()
	draft := movements.clone()
	draft.nextTypeID++
	draft.types[draft.nextTypeID] = analytics.AnimalType{ID: draft.nextTypeID, Type: name}
	m.swap(nil, draft)
	return draft.nextTypeID
}

// AddAnimal registers an animal chipped at location at chippedAt with the
// given types and returns its id.
func (m *MemoryStorage) AddAnimal(chippedAt time.Time, location geometry.GeoPoint, typeIDs ...int64) (int64, error) {
	if err := location.Validate(); err != nil {
		return 0, fmt.Errorf("invalid chipping location: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	spatial, movements := m.snapshot()
	for _, typeID := range typeIDs {
		if _, ok := movements.types[typeID]; !ok {
			return 0, fmt.Errorf("unknown animal type %d", typeID)
		}
	}

	spatialDraft := spatial.clone()
	draft := movements.clone()
	draft.nextAnimalID++
	id := draft.nextAnimalID
	draft.animals[id] = analytics.Timeline{
		AnimalID:        id,
		ChippingPointID: spatialDraft.resolvePoint(location),
		ChippedAt:       chippedAt,
	}
	for _, typeID := range typeIDs {
		members := append([]int64(nil), draft.members[typeID]...)
		draft.members[typeID] = append(members, id)
	}
	m.swap(spatialDraft, draft)
	return id, nil
}

// AddVisit records that animal animalID was at location at visitedAt.
func (m *MemoryStorage) AddVisit(animalID int64, visitedAt time.Time, location geometry.GeoPoint) error {
	if err := location.Validate(); err != nil {
		return fmt.Errorf("invalid visit location: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	spatial, movements := m.snapshot()
	timeline, ok := movements.animals[animalID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrAnimalNotFound, animalID)
	}

	spatialDraft := spatial.clone()
	visits := append([]analytics.Visit(nil), timeline.Visits...)
	visits = append(visits, analytics.Visit{PointID: spatialDraft.resolvePoint(location), VisitedAt: visitedAt})
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].VisitedAt.Before(visits[j].VisitedAt) })
	timeline.Visits = visits

	draft := movements.clone()
	draft.animals[animalID] = timeline
	m.swap(spatialDraft, draft)
	return nil
}

// SetDeath records the death time of animal animalID.
func (m *MemoryStorage) SetDeath(animalID int64, diedAt time.Time) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	_, movements := m.snapshot()
	timeline, ok := movements.animals[animalID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrAnimalNotFound, animalID)
	}
	timeline.DiedAt = &diedAt

	draft := movements.clone()
	draft.animals[animalID] = timeline
	m.swap(nil, draft)
	return nil
}
