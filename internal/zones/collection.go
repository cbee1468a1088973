package zones

import (
	"github.com/chipzone/server/internal/geometry"
)

// Collection is a read-only snapshot of registered zones with the
// cross-zone queries used for conflict detection. An exclude id of zero
// excludes nothing.
type Collection struct {
	entries []collectionEntry
}

type collectionEntry struct {
	zone   Zone
	ring   []geometry.GeoPoint
	bounds geometry.BoundingBox
}

// NewCollection indexes the given zones.
func NewCollection(zones []Zone) *Collection {
	c := &Collection{entries: make([]collectionEntry, 0, len(zones))}
	for i := range zones {
		ring := zones[i].Ring()
		c.entries = append(c.entries, collectionEntry{
			zone:   zones[i],
			ring:   ring,
			bounds: geometry.Bounds(ring),
		})
	}
	return c
}

// Len returns the number of zones in the snapshot.
func (c *Collection) Len() int { return len(c.entries) }

// Get returns the zone with the given id.
func (c *Collection) Get(id int64) (Zone, bool) {
	for _, e := range c.entries {
		if e.zone.ID == id {
			return e.zone, true
		}
	}
	return Zone{}, false
}

// NameTaken returns the zone already using name.
func (c *Collection) NameTaken(name string, exclude int64) (Zone, bool) {
	for _, e := range c.entries {
		if e.zone.ID != exclude && e.zone.Name == name {
			return e.zone, true
		}
	}
	return Zone{}, false
}

// DuplicateOf returns a zone whose vertex set equals ring's vertex set.
func (c *Collection) DuplicateOf(ring []geometry.GeoPoint, exclude int64) (Zone, bool) {
	for _, e := range c.entries {
		if e.zone.ID != exclude && geometry.SameVertexSet(e.ring, ring) {
			return e.zone, true
		}
	}
	return Zone{}, false
}

// IntersectsAny returns every zone with an edge touching an edge of ring.
func (c *Collection) IntersectsAny(ring []geometry.GeoPoint, exclude int64) []Zone {
	var out []Zone
	for _, e := range c.entries {
		if e.zone.ID != exclude && geometry.RingsIntersect(e.ring, ring) {
			out = append(out, e.zone)
		}
	}
	return out
}

// ContainsAny returns every zone lying entirely inside ring.
func (c *Collection) ContainsAny(ring []geometry.GeoPoint, exclude int64) []Zone {
	bounds := geometry.Bounds(ring)
	var out []Zone
	for _, e := range c.entries {
		if e.zone.ID != exclude && bounds.Overlaps(e.bounds) && geometry.RingContains(ring, e.ring) {
			out = append(out, e.zone)
		}
	}
	return out
}

// ContainedByAny returns every zone that ring lies entirely inside.
func (c *Collection) ContainedByAny(ring []geometry.GeoPoint, exclude int64) []Zone {
	bounds := geometry.Bounds(ring)
	var out []Zone
	for _, e := range c.entries {
		if e.zone.ID != exclude && bounds.Overlaps(e.bounds) && geometry.RingContains(e.ring, ring) {
			out = append(out, e.zone)
		}
	}
	return out
}

// Conflicts reports every zone that blocks ring. Edge intersection is always
// checked; containment in either direction only when containment is set.
// Each zone is reported once, with the first matching relation.
func (c *Collection) Conflicts(ring []geometry.GeoPoint, exclude int64, containment bool) []ConflictZoneInfo {
	seen := make(map[int64]bool)
	var out []ConflictZoneInfo
	add := func(zones []Zone, rel Relation) {
		for _, z := range zones {
			if seen[z.ID] {
				continue
			}
			seen[z.ID] = true
			out = append(out, ConflictZoneInfo{ID: z.ID, Name: z.Name, Relation: rel})
		}
	}

	add(c.IntersectsAny(ring, exclude), RelationIntersects)
	if containment {
		add(c.ContainsAny(ring, exclude), RelationContains)
		add(c.ContainedByAny(ring, exclude), RelationContainedBy)
	}
	return out
}
