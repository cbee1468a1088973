package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chipzone/server/internal/analytics"
)

// MovementStorage reads animal types, type membership and movement history.
type MovementStorage struct {
	db *sql.DB
}

// NewMovementStorage creates a new movement storage instance
func NewMovementStorage(db *sql.DB) *MovementStorage {
	return &MovementStorage{db: db}
}

func (s *MovementStorage) AnimalTypes(ctx context.Context) ([]analytics.AnimalType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type FROM animal_types ORDER BY id`)
	if err != nil {
		return nil, wrapError("failed to query animal types", err)
	}
	defer rows.Close()

	var types []analytics.AnimalType
	for rows.Next() {
		var t analytics.AnimalType
		if err := rows.Scan(&t.ID, &t.Type); err != nil {
			return nil, fmt.Errorf("failed to scan animal type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("failed to read animal types", err)
	}
	return types, nil
}

func (s *MovementStorage) AnimalsByType(ctx context.Context, typeID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT animal_id FROM animal_type_animals
		WHERE type_id = $1
		ORDER BY animal_id
	`, typeID)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to query animals of type %d", typeID), err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan animal id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("failed to read animals", err)
	}
	return ids, nil
}

// AnimalTimeline returns the chipping record and the visits of an animal
// ordered by visit time.
func (s *MovementStorage) AnimalTimeline(ctx context.Context, animalID int64) (*analytics.Timeline, error) {
	timeline := &analytics.Timeline{AnimalID: animalID}

	var diedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT chipping_location_id, chipping_date_time, death_date_time
		FROM animals WHERE id = $1
	`, animalID).Scan(&timeline.ChippingPointID, &timeline.ChippedAt, &diedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrAnimalNotFound, animalID)
	}
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to query animal %d", animalID), err)
	}
	if diedAt.Valid {
		timeline.DiedAt = &diedAt.Time
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT location_point_id, visited_at
		FROM animal_locations
		WHERE animal_id = $1
		ORDER BY visited_at, id
	`, animalID)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to query visits of animal %d", animalID), err)
	}
	defer rows.Close()

	for rows.Next() {
		var v analytics.Visit
		if err := rows.Scan(&v.PointID, &v.VisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		timeline.Visits = append(timeline.Visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("failed to read visits", err)
	}
	return timeline, nil
}
