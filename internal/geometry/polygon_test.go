package geometry

import (
	"math"
	"testing"
)

func ring(coords ...[2]float64) []GeoPoint {
	pts := make([]GeoPoint, len(coords))
	for i, c := range coords {
		pts[i] = GeoPoint{Latitude: c[0], Longitude: c[1]}
	}
	return pts
}

func pt(lat, lon float64) GeoPoint {
	return GeoPoint{Latitude: lat, Longitude: lon}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		name    string
		p, q, r GeoPoint
		want    int
	}{
		{"collinear", pt(0, 0), pt(1, 1), pt(2, 2), Collinear},
		{"counterclockwise", pt(0, 0), pt(1, 0), pt(1, 1), Counterclockwise},
		{"clockwise", pt(0, 0), pt(0, 1), pt(1, 1), Clockwise},
		{"repeated point", pt(3, 3), pt(3, 3), pt(5, 1), Collinear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Orientation(tt.p, tt.q, tt.r); got != tt.want {
				t.Errorf("Orientation(%v, %v, %v) = %d, want %d", tt.p, tt.q, tt.r, got, tt.want)
			}
		})
	}
}

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name           string
		p1, q1, p2, q2 GeoPoint
		want           bool
	}{
		{"proper crossing", pt(0, 0), pt(10, 10), pt(0, 10), pt(10, 0), true},
		{"disjoint parallel", pt(0, 0), pt(10, 0), pt(0, 1), pt(10, 1), false},
		{"touching at endpoint", pt(0, 0), pt(5, 5), pt(5, 5), pt(10, 0), true},
		{"endpoint on interior", pt(0, 0), pt(10, 0), pt(5, 0), pt(5, 5), true},
		{"collinear overlap", pt(0, 0), pt(6, 0), pt(4, 0), pt(10, 0), true},
		{"collinear disjoint", pt(0, 0), pt(3, 0), pt(4, 0), pt(10, 0), false},
		{"lines cross outside segments", pt(0, 0), pt(1, 1), pt(3, 0), pt(2, 1), false},
		{"T short of touching", pt(0, 0), pt(10, 0), pt(5, 0.5), pt(5, 5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentsIntersect(tt.p1, tt.q1, tt.p2, tt.q2); got != tt.want {
				t.Errorf("SegmentsIntersect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSegmentsIntersect_Symmetric(t *testing.T) {
	points := []GeoPoint{
		pt(0, 0), pt(10, 10), pt(0, 10), pt(10, 0), pt(5, 5),
		pt(5, 0), pt(-3, 7), pt(2.5, 2.5), pt(20, 20), pt(0, 5),
	}
	for _, a := range points {
		for _, b := range points {
			for _, c := range points {
				for _, d := range points {
					if SegmentsIntersect(a, b, c, d) != SegmentsIntersect(c, d, a, b) {
						t.Fatalf("asymmetric result for %v-%v vs %v-%v", a, b, c, d)
					}
				}
			}
		}
	}
}

func TestIsSimplePolygon(t *testing.T) {
	tests := []struct {
		name string
		ring []GeoPoint
		want bool
	}{
		{"closed square", ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{10, 10}, [2]float64{10, 0}, [2]float64{0, 0}), true},
		{"open square", ring([2]float64{20, 20}, [2]float64{20, 30}, [2]float64{30, 30}, [2]float64{30, 20}), true},
		{"triangle", ring([2]float64{0, 0}, [2]float64{5, 10}, [2]float64{10, 0}), true},
		{"concave", ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{5, 5}, [2]float64{10, 10}, [2]float64{10, 0}), true},
		{"bowtie", ring([2]float64{0, 0}, [2]float64{10, 10}, [2]float64{10, 0}, [2]float64{0, 10}), false},
		{"two points", ring([2]float64{0, 0}, [2]float64{1, 1}), false},
		{"two distinct of four", ring([2]float64{0, 0}, [2]float64{1, 1}, [2]float64{0, 0}, [2]float64{1, 1}), false},
		{"empty", nil, false},
		{"collinear", ring([2]float64{0, 0}, [2]float64{1, 1}, [2]float64{2, 2}, [2]float64{3, 3}), false},
		{"zero length edge", ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{0, 10}, [2]float64{10, 10}, [2]float64{10, 0}), false},
		{"spike", ring([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{5, 0}, [2]float64{5, 5}), false},
		{"touching vertex figure eight", ring(
			[2]float64{0, 0}, [2]float64{0, 10}, [2]float64{5, 5},
			[2]float64{10, 10}, [2]float64{10, 0}, [2]float64{5, 5},
		), false},
		{"vertex on non-adjacent edge", ring(
			[2]float64{0, 0}, [2]float64{0, 10}, [2]float64{10, 10},
			[2]float64{10, 0}, [2]float64{5, 0}, [2]float64{5, 10},
		), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSimplePolygon(tt.ring); got != tt.want {
				t.Errorf("IsSimplePolygon(%v) = %v, want %v", tt.ring, got, tt.want)
			}
		})
	}
}

func TestIsSimplePolygon_FewerThanThreeDistinct(t *testing.T) {
	base := []GeoPoint{pt(1, 2), pt(3, 4)}
	for n := 0; n <= 6; n++ {
		r := make([]GeoPoint, n)
		for i := range r {
			r[i] = base[i%2]
		}
		if IsSimplePolygon(r) {
			t.Errorf("ring of %d points with <3 distinct vertices reported simple", n)
		}
	}
}

func TestConvexPolygon_AdjacentEdgesOnlyShareVertex(t *testing.T) {
	// Regular octagon: every pair of adjacent edges meets only at the shared vertex,
	// and no pair of non-adjacent edges meets at all.
	const n = 8
	r := make([]GeoPoint, n)
	for i := range r {
		angle := 2 * math.Pi * float64(i) / n
		r[i] = pt(10*math.Cos(angle), 10*math.Sin(angle))
	}
	if !IsSimplePolygon(r) {
		t.Fatal("expected octagon to be simple")
	}
	for i := 0; i < n; i++ {
		a, b, c := r[i], r[(i+1)%n], r[(i+2)%n]
		if Orientation(a, b, c) == Collinear {
			t.Errorf("vertex %d: adjacent edges are collinear", (i+1)%n)
		}
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if SegmentsIntersect(r[i], r[(i+1)%n], r[j], r[(j+1)%n]) {
				t.Errorf("non-adjacent edges %d and %d intersect", i, j)
			}
		}
	}
}

func TestPointInPolygon(t *testing.T) {
	square := ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{10, 10}, [2]float64{10, 0})
	concave := ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{5, 5}, [2]float64{10, 10}, [2]float64{10, 0})

	tests := []struct {
		name  string
		ring  []GeoPoint
		point GeoPoint
		want  bool
	}{
		{"center", square, pt(5, 5), true},
		{"outside", square, pt(15, 5), false},
		{"outside below", square, pt(-1, -1), false},
		{"on edge is inside", square, pt(0, 5), true},
		{"on vertex is inside", square, pt(10, 10), true},
		{"closed ring center", append(square, square[0]), pt(1, 1), true},
		{"concave notch", concave, pt(5, 8), false},
		{"concave body", concave, pt(5, 2), true},
		{"ray through vertex", concave, pt(2, 5), true},
		{"degenerate ring", ring([2]float64{0, 0}, [2]float64{1, 1}), pt(0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.ring, tt.point); got != tt.want {
				t.Errorf("PointInPolygon(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestRingRelations(t *testing.T) {
	big := ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{10, 10}, [2]float64{10, 0})
	small := ring([2]float64{2, 2}, [2]float64{2, 4}, [2]float64{4, 4}, [2]float64{4, 2})
	overlapping := ring([2]float64{5, 5}, [2]float64{5, 15}, [2]float64{15, 15}, [2]float64{15, 5})
	far := ring([2]float64{20, 20}, [2]float64{20, 30}, [2]float64{30, 30}, [2]float64{30, 20})

	if !RingsIntersect(big, overlapping) {
		t.Error("expected overlapping squares to intersect")
	}
	if RingsIntersect(big, small) {
		t.Error("nested squares should not have crossing edges")
	}
	if RingsIntersect(big, far) {
		t.Error("disjoint squares should not intersect")
	}
	if !RingContains(big, small) {
		t.Error("expected big to contain small")
	}
	if RingContains(small, big) {
		t.Error("small cannot contain big")
	}
	if RingContains(big, far) {
		t.Error("big does not contain far")
	}
}

func TestSameVertexSet(t *testing.T) {
	a := ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{10, 10}, [2]float64{10, 0}, [2]float64{0, 0})
	b := ring([2]float64{10, 10}, [2]float64{10, 0}, [2]float64{0, 0}, [2]float64{0, 10})
	c := ring([2]float64{10, 10}, [2]float64{10, 0}, [2]float64{0, 0}, [2]float64{0, 11})

	if !SameVertexSet(a, b) {
		t.Error("expected rotated closed/open ring to have the same vertex set")
	}
	if SameVertexSet(a, c) {
		t.Error("expected different vertex sets")
	}
}

func TestNormalizeRing(t *testing.T) {
	closed := ring([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 1}, [2]float64{0, 0})
	got := NormalizeRing(closed)
	if len(got) != 3 {
		t.Fatalf("expected closing vertex to be dropped, got %v", got)
	}
	if len(closed) != 4 {
		t.Fatal("NormalizeRing must not modify its input")
	}
	open := ring([2]float64{0, 0}, [2]float64{0, 1}, [2]float64{1, 1})
	if len(NormalizeRing(open)) != 3 {
		t.Fatal("open ring should be unchanged")
	}
}

func TestSignedArea(t *testing.T) {
	ccw := ring([2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10}, [2]float64{0, 10})
	if got := SignedArea(ccw); got != 100 {
		t.Errorf("SignedArea = %v, want 100", got)
	}
	cw := ring([2]float64{0, 0}, [2]float64{0, 10}, [2]float64{10, 10}, [2]float64{10, 0}, [2]float64{0, 0})
	if got := SignedArea(cw); got != -100 {
		t.Errorf("SignedArea = %v, want -100", got)
	}
}

func TestGeoPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       GeoPoint
		wantErr bool
	}{
		{"origin", pt(0, 0), false},
		{"corners", pt(-90, 180), false},
		{"latitude too high", pt(90.0001, 0), true},
		{"longitude too low", pt(0, -180.5), true},
		{"nan", pt(math.NaN(), 0), true},
		{"inf", pt(0, math.Inf(1)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBoundingBoxOverlaps(t *testing.T) {
	a := Bounds(ring([2]float64{0, 0}, [2]float64{10, 10}))
	b := Bounds(ring([2]float64{10, 10}, [2]float64{20, 20}))
	c := Bounds(ring([2]float64{11, 11}, [2]float64{20, 20}))
	if !a.Overlaps(b) {
		t.Error("boxes sharing a corner overlap")
	}
	if a.Overlaps(c) {
		t.Error("separate boxes must not overlap")
	}
}
