package geometry

// Orientation codes for an ordered triple of points. The cross product is
// taken with latitude as the first axis and longitude as the second.
const (
	Collinear        = 0
	Counterclockwise = 1
	Clockwise        = 2
)

// Orientation classifies the turn p -> q -> r.
func Orientation(p, q, r GeoPoint) int {
	val := (q.Latitude-p.Latitude)*(r.Longitude-q.Longitude) -
		(q.Longitude-p.Longitude)*(r.Latitude-q.Latitude)
	switch compare(val, 0) {
	case 0:
		return Collinear
	case 1:
		return Counterclockwise
	default:
		return Clockwise
	}
}

// onSegment reports whether r lies within the bounding box of segment p-q.
// Callers only use it once p, q and r are known to be collinear.
func onSegment(p, q, r GeoPoint) bool {
	return compare(r.Longitude, max(p.Longitude, q.Longitude)) <= 0 &&
		compare(r.Longitude, min(p.Longitude, q.Longitude)) >= 0 &&
		compare(r.Latitude, max(p.Latitude, q.Latitude)) <= 0 &&
		compare(r.Latitude, min(p.Latitude, q.Latitude)) >= 0
}

// SegmentsIntersect reports whether segment p1-q1 and segment p2-q2 share
// at least one point. Touching and collinear overlaps count as intersections.
func SegmentsIntersect(p1, q1, p2, q2 GeoPoint) bool {
	o1 := Orientation(p1, q1, p2)
	o2 := Orientation(p1, q1, q2)
	o3 := Orientation(p2, q2, p1)
	o4 := Orientation(p2, q2, q1)

	if o1 != o2 && o3 != o4 {
		return true
	}

	if o1 == Collinear && onSegment(p1, q1, p2) {
		return true
	}
	if o2 == Collinear && onSegment(p1, q1, q2) {
		return true
	}
	if o3 == Collinear && onSegment(p2, q2, p1) {
		return true
	}
	if o4 == Collinear && onSegment(p2, q2, q1) {
		return true
	}
	return false
}

// NormalizeRing returns a copy of ring without the closing vertex, if the
// ring was submitted closed (first == last). The ring is otherwise unchanged.
func NormalizeRing(ring []GeoPoint) []GeoPoint {
	out := make([]GeoPoint, len(ring))
	copy(out, ring)
	if len(out) >= 2 && out[0].Equal(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

// DistinctCount returns the number of distinct locations in points.
func DistinctCount(points []GeoPoint) int {
	count := 0
	for i, p := range points {
		seen := false
		for _, q := range points[:i] {
			if p.Equal(q) {
				seen = true
				break
			}
		}
		if !seen {
			count++
		}
	}
	return count
}

// SameVertexSet reports whether a and b contain exactly the same locations,
// ignoring order, multiplicity and an optional closing vertex.
func SameVertexSet(a, b []GeoPoint) bool {
	return containsAll(a, b) && containsAll(b, a)
}

func containsAll(set, points []GeoPoint) bool {
	for _, p := range points {
		found := false
		for _, q := range set {
			if p.Equal(q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SignedArea returns the shoelace area of the ring in square degrees.
// Positive values mean the vertices turn counterclockwise.
func SignedArea(ring []GeoPoint) float64 {
	ring = NormalizeRing(ring)
	n := len(ring)
	var sum float64
	for i := 0; i < n; i++ {
		a, b := ring[i], ring[(i+1)%n]
		sum += a.Latitude*b.Longitude - b.Latitude*a.Longitude
	}
	return sum / 2
}

// allCollinear reports whether every vertex lies on one line.
func allCollinear(ring []GeoPoint) bool {
	if len(ring) < 3 {
		return true
	}
	anchor := ring[0]
	var other GeoPoint
	found := false
	for _, p := range ring[1:] {
		if !p.Equal(anchor) {
			other, found = p, true
			break
		}
	}
	if !found {
		return true
	}
	for _, p := range ring {
		if Orientation(anchor, other, p) != Collinear {
			return false
		}
	}
	return true
}

// IsSimplePolygon reports whether ring, closed implicitly from its last
// vertex back to its first, bounds a simple polygon. It accepts rings with or
// without a repeated closing vertex.
//
// A ring is rejected when it has fewer than three distinct vertices, when all
// vertices are collinear, when two consecutive vertices coincide, when an edge
// folds back over its neighbour, or when any two non-adjacent edges touch.
func IsSimplePolygon(ring []GeoPoint) bool {
	pts := NormalizeRing(ring)
	if DistinctCount(pts) < 3 {
		return false
	}
	if allCollinear(pts) {
		return false
	}

	n := len(pts)
	for i := 0; i < n; i++ {
		a, b, c := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		if a.Equal(b) {
			return false
		}
		if Orientation(a, b, c) == Collinear && (onSegment(a, b, c) || onSegment(b, c, a)) {
			return false
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if SegmentsIntersect(pts[i], pts[(i+1)%n], pts[j], pts[(j+1)%n]) {
				return false
			}
		}
	}
	return true
}

// PointInPolygon reports whether point lies inside ring. Points exactly on
// an edge or vertex are inside. The ring may be open or closed.
func PointInPolygon(ring []GeoPoint, point GeoPoint) bool {
	pts := NormalizeRing(ring)
	n := len(pts)
	if n < 3 {
		return false
	}

	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		if Orientation(a, b, point) == Collinear && onSegment(a, b, point) {
			return true
		}
	}

	// Cast a ray towards increasing latitude and count edge crossings.
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (compare(a.Longitude, point.Longitude) > 0) == (compare(b.Longitude, point.Longitude) > 0) {
			continue
		}
		crossing := a.Latitude + (point.Longitude-a.Longitude)*(b.Latitude-a.Latitude)/(b.Longitude-a.Longitude)
		if compare(point.Latitude, crossing) < 0 {
			inside = !inside
		}
	}
	return inside
}

// RingsIntersect reports whether any edge of a touches any edge of b.
func RingsIntersect(a, b []GeoPoint) bool {
	a, b = NormalizeRing(a), NormalizeRing(b)
	if !Bounds(a).Overlaps(Bounds(b)) {
		return false
	}
	for i := range a {
		p1, q1 := a[i], a[(i+1)%len(a)]
		for j := range b {
			if SegmentsIntersect(p1, q1, b[j], b[(j+1)%len(b)]) {
				return true
			}
		}
	}
	return false
}

// RingContains reports whether every vertex of inner lies inside outer.
func RingContains(outer, inner []GeoPoint) bool {
	inner = NormalizeRing(inner)
	if len(inner) == 0 {
		return false
	}
	for _, p := range inner {
		if !PointInPolygon(outer, p) {
			return false
		}
	}
	return true
}
