package zones_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/chipzone/server/internal/database"
	"github.com/chipzone/server/internal/geometry"
	"github.com/chipzone/server/internal/testutil"
	"github.com/chipzone/server/internal/zones"
)

type recorder struct {
	mu       sync.Mutex
	events   []zones.ZoneEvent
	outcomes []string
}

func (r *recorder) ZoneChanged(event zones.ZoneEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) ObserveMutation(operation string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, operation+":"+zones.Kind(err))
}

func newStore(t *testing.T, opts ...zones.Option) (*zones.Store, *database.MemoryStorage, *recorder) {
	t.Helper()
	storage := database.NewMemoryStorage()
	rec := &recorder{}
	opts = append([]zones.Option{zones.WithNotifier(rec), zones.WithObserver(rec)}, opts...)
	return zones.NewStore(storage, opts...), storage, rec
}

func mustCreate(t *testing.T, s *zones.Store, name string, ring []geometry.GeoPoint) *zones.Zone {
	t.Helper()
	z, err := s.CreateZone(context.Background(), name, ring)
	if err != nil {
		t.Fatalf("CreateZone(%s): %v", name, err)
	}
	return z
}

func TestCreateZone(t *testing.T) {
	s, _, _ := newStore(t)
	mustCreate(t, s, "base", testutil.Square(0, 0, 10))

	tests := []struct {
		name     string
		zoneName string
		ring     []geometry.GeoPoint
		want     error
	}{
		{"disjoint square", "disjoint", testutil.Square(20, 20, 10), nil},
		{"overlapping square", "overlap", testutil.Square(5, 5, 10), zones.ErrGeometryConflict},
		{"shares an edge", "neighbour", testutil.Square(0, 10, 10), zones.ErrGeometryConflict},
		{"inside existing", "inner", testutil.Square(2, 2, 2), zones.ErrGeometryConflict},
		{"around existing", "outer", testutil.Square(-5, -5, 30), zones.ErrGeometryConflict},
		{"bowtie", "bowtie", testutil.Bowtie(), zones.ErrInvalidGeometry},
		{"two points", "line", testutil.Ring([2]float64{50, 50}, [2]float64{60, 60}), zones.ErrInvalidGeometry},
		{"collinear", "flat", testutil.Ring([2]float64{50, 50}, [2]float64{55, 55}, [2]float64{60, 60}), zones.ErrInvalidGeometry},
		{"latitude out of range", "north", testutil.Square(85, 0, 10), zones.ErrInvalidGeometry},
		{"empty name", "   ", testutil.Square(40, 40, 5), zones.ErrInvalidName},
		{"duplicate name", "base", testutil.Square(40, 40, 5), zones.ErrDuplicateName},
		{"duplicate point set", "copy", testutil.Square(0, 0, 10), zones.ErrDuplicatePointSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, err := s.CreateZone(context.Background(), tt.zoneName, tt.ring)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("CreateZone: %v", err)
				}
				if z.ID == 0 {
					t.Error("expected zone ID to be set")
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateZoneConflictDetails(t *testing.T) {
	s, _, _ := newStore(t)
	base := mustCreate(t, s, "base", testutil.Square(0, 0, 10))

	tests := []struct {
		name string
		ring []geometry.GeoPoint
		want zones.Relation
	}{
		{"overlap", testutil.Square(5, 5, 10), zones.RelationIntersects},
		{"inside", testutil.Square(2, 2, 2), zones.RelationContainedBy},
		{"around", testutil.Square(-5, -5, 30), zones.RelationContains},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateZone(context.Background(), tt.name, tt.ring)
			var conflict *zones.ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("err = %v, want *ConflictError", err)
			}
			if len(conflict.Conflicts) != 1 {
				t.Fatalf("conflicts = %+v, want one", conflict.Conflicts)
			}
			got := conflict.Conflicts[0]
			if got.ID != base.ID || got.Name != "base" || got.Relation != tt.want {
				t.Errorf("conflict = %+v, want zone %d with %s", got, base.ID, tt.want)
			}
		})
	}
}

func TestCreateZoneRoundTrip(t *testing.T) {
	s, _, _ := newStore(t)
	closed := append(testutil.Square(0, 0, 10), geometry.GeoPoint{Latitude: 0, Longitude: 0})

	created := mustCreate(t, s, "  padded  ", closed)
	if created.Name != "padded" {
		t.Errorf("name = %q, want trimmed", created.Name)
	}

	got, err := s.GetZone(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetZone: %v", err)
	}
	want := testutil.Square(0, 0, 10)
	if len(got.AreaPoints) != len(want) {
		t.Fatalf("got %d vertices, want the open ring of %d", len(got.AreaPoints), len(want))
	}
	if !geometry.SameVertexSet(got.Ring(), want) {
		t.Errorf("ring = %v, want %v", got.Ring(), want)
	}
	for i, p := range got.AreaPoints {
		if !p.GeoPoint.Equal(want[i]) {
			t.Errorf("vertex %d = %v, want %v (input order)", i, p.GeoPoint, want[i])
		}
	}
}

func TestFailedCreateKeepsNoPoints(t *testing.T) {
	s, storage, _ := newStore(t)
	mustCreate(t, s, "base", testutil.Square(0, 0, 10))
	before := storage.PointCount()

	if _, err := s.CreateZone(context.Background(), "base", testutil.Square(40, 40, 5)); !errors.Is(err, zones.ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	if _, err := s.CreateZone(context.Background(), "overlap", testutil.Square(5, 5, 10)); !errors.Is(err, zones.ErrGeometryConflict) {
		t.Fatalf("err = %v, want ErrGeometryConflict", err)
	}
	if got := storage.PointCount(); got != before {
		t.Errorf("PointCount = %d, want %d", got, before)
	}
}

func TestUpdateZone(t *testing.T) {
	s, _, _ := newStore(t)
	a := mustCreate(t, s, "a", testutil.Square(0, 0, 10))
	mustCreate(t, s, "b", testutil.Square(20, 20, 10))
	ctx := context.Background()

	t.Run("own geometry", func(t *testing.T) {
		if _, err := s.UpdateZone(ctx, a.ID, "a", testutil.Square(0, 0, 10)); err != nil {
			t.Fatalf("UpdateZone with unchanged ring: %v", err)
		}
	})

	t.Run("rename and grow", func(t *testing.T) {
		z, err := s.UpdateZone(ctx, a.ID, "renamed", testutil.Square(0, 0, 15))
		if err != nil {
			t.Fatalf("UpdateZone: %v", err)
		}
		got, err := s.GetZone(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetZone: %v", err)
		}
		if got.Name != "renamed" || !geometry.SameVertexSet(got.Ring(), z.Ring()) {
			t.Errorf("stored zone = %+v, want %+v", got, z)
		}
	})

	tests := []struct {
		name     string
		id       int64
		zoneName string
		ring     []geometry.GeoPoint
		want     error
	}{
		{"unknown zone", 999, "x", testutil.Square(60, 60, 5), zones.ErrNotFound},
		{"name of other zone", a.ID, "b", testutil.Square(0, 0, 10), zones.ErrDuplicateName},
		{"empty name", a.ID, "", testutil.Square(0, 0, 10), zones.ErrInvalidName},
		{"bowtie", a.ID, "a", testutil.Bowtie(), zones.ErrInvalidGeometry},
		{"crosses other zone", a.ID, "a", testutil.Square(0, 0, 25), zones.ErrGeometryConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateZone(ctx, tt.id, tt.zoneName, tt.ring)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateZoneContainmentPolicy(t *testing.T) {
	enclosing := testutil.Square(-5, -5, 60)

	t.Run("default allows containment", func(t *testing.T) {
		s, _, _ := newStore(t)
		a := mustCreate(t, s, "a", testutil.Square(0, 0, 10))
		mustCreate(t, s, "b", testutil.Square(20, 20, 10))

		if _, err := s.UpdateZone(context.Background(), a.ID, "a", enclosing); err != nil {
			t.Fatalf("UpdateZone: %v", err)
		}
	})

	t.Run("strict policy rejects containment", func(t *testing.T) {
		s, _, _ := newStore(t, zones.WithPolicy(zones.Policy{CheckContainmentOnUpdate: true}))
		if !s.Policy().CheckContainmentOnUpdate {
			t.Fatal("policy not applied")
		}
		a := mustCreate(t, s, "a", testutil.Square(0, 0, 10))
		b := mustCreate(t, s, "b", testutil.Square(20, 20, 10))

		_, err := s.UpdateZone(context.Background(), a.ID, "a", enclosing)
		var conflict *zones.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("err = %v, want *ConflictError", err)
		}
		if conflict.Conflicts[0].ID != b.ID || conflict.Conflicts[0].Relation != zones.RelationContains {
			t.Errorf("conflicts = %+v", conflict.Conflicts)
		}
	})
}

func TestDeleteZone(t *testing.T) {
	s, _, _ := newStore(t)
	z := mustCreate(t, s, "gone", testutil.Square(0, 0, 10))
	ctx := context.Background()

	if err := s.DeleteZone(ctx, z.ID); err != nil {
		t.Fatalf("DeleteZone: %v", err)
	}
	if _, err := s.GetZone(ctx, z.ID); !errors.Is(err, zones.ErrNotFound) {
		t.Errorf("GetZone after delete: %v", err)
	}
	if err := s.DeleteZone(ctx, z.ID); !errors.Is(err, zones.ErrNotFound) {
		t.Errorf("second DeleteZone: %v", err)
	}

	// The freed area and name are available again.
	mustCreate(t, s, "gone", testutil.Square(0, 0, 10))
}

func TestStoreReportsMutations(t *testing.T) {
	s, _, rec := newStore(t)
	ctx := context.Background()

	z := mustCreate(t, s, "a", testutil.Square(0, 0, 10))
	_, _ = s.CreateZone(ctx, "a", testutil.Square(20, 20, 5))
	_, _ = s.UpdateZone(ctx, z.ID, "a2", testutil.Square(0, 0, 12))
	_ = s.DeleteZone(ctx, z.ID)
	_ = s.DeleteZone(ctx, z.ID)

	wantOutcomes := []string{
		"create:ok",
		"create:duplicate_name",
		"update:ok",
		"delete:ok",
		"delete:not_found",
	}
	if len(rec.outcomes) != len(wantOutcomes) {
		t.Fatalf("outcomes = %v, want %v", rec.outcomes, wantOutcomes)
	}
	for i := range wantOutcomes {
		if rec.outcomes[i] != wantOutcomes[i] {
			t.Errorf("outcome %d = %s, want %s", i, rec.outcomes[i], wantOutcomes[i])
		}
	}

	wantEvents := []zones.EventType{zones.EventCreated, zones.EventUpdated, zones.EventDeleted}
	if len(rec.events) != len(wantEvents) {
		t.Fatalf("events = %+v, want %v", rec.events, wantEvents)
	}
	for i, want := range wantEvents {
		if rec.events[i].Type != want || rec.events[i].ZoneID != z.ID {
			t.Errorf("event %d = %+v, want %s for zone %d", i, rec.events[i], want, z.ID)
		}
	}
	if rec.events[2].Zone != nil {
		t.Error("delete event should not carry a zone")
	}
}

func TestConcurrentCreatesAdmitOneOverlap(t *testing.T) {
	s, _, _ := newStore(t)
	const workers = 10

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every ring overlaps every other one.
			ring := testutil.Square(float64(i), float64(i), 20)
			if _, err := s.CreateZone(context.Background(), fmt.Sprintf("zone-%d", i), ring); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created %d overlapping zones, want exactly 1", created)
	}
}
