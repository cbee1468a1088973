package geometry

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance applied by every coordinate comparison in this
// package. It is zero: two coordinates are equal only when they are
// bit-for-bit the same float64, and orientation is collinear only for an
// exactly zero cross product.
const Epsilon = 0.0

// GeoPoint is an immutable latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewGeoPoint builds a point and checks that it lies within [-90,90] x [-180,180].
func NewGeoPoint(latitude, longitude float64) (GeoPoint, error) {
	p := GeoPoint{Latitude: latitude, Longitude: longitude}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// Validate reports whether the point's coordinates are finite and in range.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) ||
		math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		return fmt.Errorf("coordinates must be finite numbers")
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude out of bounds: %f (allowed -90..90)", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude out of bounds: %f (allowed -180..180)", p.Longitude)
	}
	return nil
}

// Equal reports whether both points are the same location.
func (p GeoPoint) Equal(o GeoPoint) bool {
	return compare(p.Latitude, o.Latitude) == 0 && compare(p.Longitude, o.Longitude) == 0
}

// Less orders points by latitude, then longitude.
func (p GeoPoint) Less(o GeoPoint) bool {
	if c := compare(p.Latitude, o.Latitude); c != 0 {
		return c < 0
	}
	return compare(p.Longitude, o.Longitude) < 0
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%g, %g)", p.Latitude, p.Longitude)
}

// compare is the single comparator behind every equality, ordering and
// collinearity decision. Changing Epsilon changes all of them at once.
func compare(a, b float64) int {
	d := a - b
	switch {
	case d > Epsilon:
		return 1
	case d < -Epsilon:
		return -1
	default:
		return 0
	}
}

// BoundingBox is an axis-aligned rectangle in latitude/longitude space.
type BoundingBox struct {
	MinLatitude, MinLongitude float64
	MaxLatitude, MaxLongitude float64
}

// Bounds returns the bounding box of the given points. The zero box is
// returned for an empty slice.
func Bounds(points []GeoPoint) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{
		MinLatitude: points[0].Latitude, MaxLatitude: points[0].Latitude,
		MinLongitude: points[0].Longitude, MaxLongitude: points[0].Longitude,
	}
	for _, p := range points[1:] {
		b.MinLatitude = math.Min(b.MinLatitude, p.Latitude)
		b.MaxLatitude = math.Max(b.MaxLatitude, p.Latitude)
		b.MinLongitude = math.Min(b.MinLongitude, p.Longitude)
		b.MaxLongitude = math.Max(b.MaxLongitude, p.Longitude)
	}
	return b
}

// Overlaps reports whether two boxes share at least one point, edges included.
func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return compare(b.MinLatitude, o.MaxLatitude) <= 0 &&
		compare(o.MinLatitude, b.MaxLatitude) <= 0 &&
		compare(b.MinLongitude, o.MaxLongitude) <= 0 &&
		compare(o.MinLongitude, b.MaxLongitude) <= 0
}
