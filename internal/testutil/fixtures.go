package testutil

import (
	"time"

	"github.com/chipzone/server/internal/geometry"
)

// RandomString generates a random string of specified length
func RandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	seed := time.Now().UnixNano()
	for i := range b {
		seed = seed*1103515245 + 12345 // Simple LCG
		idx := int(seed % int64(len(charset)))
		if idx < 0 {
			idx = -idx
		}
		b[i] = charset[idx]
	}
	return string(b)
}

// RandomZoneName generates a zone name unlikely to collide with others
func RandomZoneName() string {
	return "Test Zone " + RandomString(6)
}

// Ring builds a ring from (latitude, longitude) pairs
func Ring(coords ...[2]float64) []geometry.GeoPoint {
	ring := make([]geometry.GeoPoint, len(coords))
	for i, c := range coords {
		ring[i] = geometry.GeoPoint{Latitude: c[0], Longitude: c[1]}
	}
	return ring
}

// Square returns the open counterclockwise ring of the axis-aligned square
// with its lower-left corner at (lat, lon)
func Square(lat, lon, size float64) []geometry.GeoPoint {
	return Ring(
		[2]float64{lat, lon},
		[2]float64{lat + size, lon},
		[2]float64{lat + size, lon + size},
		[2]float64{lat, lon + size},
	)
}

// Bowtie returns a self-intersecting four-vertex ring
func Bowtie() []geometry.GeoPoint {
	return Ring(
		[2]float64{0, 0},
		[2]float64{10, 10},
		[2]float64{10, 0},
		[2]float64{0, 10},
	)
}

// Day is a fixed reference time for timeline fixtures
var Day = time.Date(2023, time.March, 1, 12, 0, 0, 0, time.UTC)
