package zones

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrInvalidName       = errors.New("invalid zone name")
	ErrDuplicateName     = errors.New("duplicate zone name")
	ErrDuplicatePointSet = errors.New("duplicate zone point set")
	ErrGeometryConflict  = errors.New("zone geometry conflict")
	ErrNotFound          = errors.New("zone not found")

	// ErrUnavailable marks storage failures that may succeed when retried.
	ErrUnavailable = errors.New("storage unavailable")
)

// Relation describes how a candidate ring conflicts with an existing zone.
type Relation string

const (
	RelationIntersects  Relation = "intersects"
	RelationContains    Relation = "contains"
	RelationContainedBy Relation = "contained_by"
)

// ConflictZoneInfo identifies an existing zone that blocks a mutation.
type ConflictZoneInfo struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Relation Relation `json:"relation"`
}

// ConflictError is returned when a ring intersects, contains or is
// contained by existing zones. It matches ErrGeometryConflict.
type ConflictError struct {
	Conflicts []ConflictZoneInfo `json:"conflicts"`
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s zone %d (%s)", c.Relation, c.ID, c.Name))
	}
	return fmt.Sprintf("%s: %s", ErrGeometryConflict, strings.Join(parts, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrGeometryConflict }

// Kind maps err to a stable label. It is used for HTTP status mapping and
// metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, ErrDuplicatePointSet):
		return "duplicate_point_set"
	case errors.Is(err, ErrGeometryConflict):
		return "geometry_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
