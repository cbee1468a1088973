package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/chipzone/server/internal/geometry"
	"github.com/chipzone/server/internal/zones"
	"github.com/lib/pq"
)

// zoneMutationLock is the advisory lock key held by every zone mutation
// transaction. It serializes conflict checks with the writes they guard.
const zoneMutationLock int64 = 0x7a6f6e6573

const selectZones = `
	SELECT z.id, z.name, p.id, p.latitude, p.longitude
	FROM zones z
	JOIN zone_points zp ON zp.zone_id = z.id
	JOIN points p ON p.id = zp.point_id
`

// ZoneStorage persists zones and their vertices in PostgreSQL.
type ZoneStorage struct {
	db *sql.DB
}

// NewZoneStorage creates a new zone storage instance
func NewZoneStorage(db *sql.DB) *ZoneStorage {
	return &ZoneStorage{db: db}
}

// Zone returns zone id with its vertices in ring order.
func (s *ZoneStorage) Zone(ctx context.Context, id int64) (*zones.Zone, error) {
	rows, err := s.db.QueryContext(ctx, selectZones+` WHERE z.id = $1 ORDER BY zp.position`, id)
	if err != nil {
		return nil, wrapError(fmt.Sprintf("failed to query zone %d", id), err)
	}
	list, err := scanZones(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %d", zones.ErrNotFound, id)
	}
	return &list[0], nil
}

// Mutate runs fn in a transaction holding the zone mutation lock. The
// transaction commits only when fn succeeds.
func (s *ZoneStorage) Mutate(ctx context.Context, fn func(ctx context.Context, tx zones.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("failed to begin zone transaction", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			log.Printf("[ZoneStorage] Failed to rollback zone transaction: %v", rollbackErr)
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, zoneMutationLock); err != nil {
		return wrapError("failed to acquire zone mutation lock", err)
	}
	if err = fn(ctx, &zoneTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return wrapError("failed to commit zone transaction", err)
	}
	return nil
}

type zoneTx struct {
	tx *sql.Tx
}

func (t *zoneTx) Zones(ctx context.Context) ([]zones.Zone, error) {
	rows, err := t.tx.QueryContext(ctx, selectZones+` ORDER BY z.id, zp.position`)
	if err != nil {
		return nil, wrapError("failed to query zones", err)
	}
	return scanZones(rows)
}

// ResolveOrCreatePoint returns the id of the point at exactly these
// coordinates, creating it when none exists.
func (t *zoneTx) ResolveOrCreatePoint(ctx context.Context, latitude, longitude float64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO points (latitude, longitude)
		VALUES ($1, $2)
		ON CONFLICT (latitude, longitude)
		DO UPDATE SET latitude = EXCLUDED.latitude
		RETURNING id
	`, latitude, longitude).Scan(&id)
	if err != nil {
		return 0, wrapError("failed to resolve point", err)
	}
	return id, nil
}

func (t *zoneTx) InsertZone(ctx context.Context, name string, ring []zones.Point) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `INSERT INTO zones (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %q", zones.ErrDuplicateName, name)
		}
		return 0, wrapError("failed to insert zone", err)
	}
	if err := t.insertRing(ctx, id, ring); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *zoneTx) ReplaceZone(ctx context.Context, id int64, name string, ring []zones.Point) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE zones SET name = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, id, name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", zones.ErrDuplicateName, name)
		}
		return wrapError(fmt.Sprintf("failed to update zone %d", id), err)
	}
	if err := expectAffected(result, id); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(ctx, `DELETE FROM zone_points WHERE zone_id = $1`, id); err != nil {
		return wrapError(fmt.Sprintf("failed to clear vertices of zone %d", id), err)
	}
	return t.insertRing(ctx, id, ring)
}

func (t *zoneTx) DeleteZone(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to delete zone %d", id), err)
	}
	return expectAffected(result, id)
}

// insertRing stores the vertex order of zone id in one statement.
func (t *zoneTx) insertRing(ctx context.Context, id int64, ring []zones.Point) error {
	pointIDs := make([]int64, len(ring))
	for i, p := range ring {
		pointIDs[i] = p.ID
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO zone_points (zone_id, position, point_id)
		SELECT $1, v.ord - 1, v.point_id
		FROM unnest($2::bigint[]) WITH ORDINALITY AS v(point_id, ord)
	`, id, pq.Array(pointIDs))
	if err != nil {
		return wrapError(fmt.Sprintf("failed to store vertices of zone %d", id), err)
	}
	return nil
}

func expectAffected(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", zones.ErrNotFound, id)
	}
	return nil
}

// scanZones groups rows ordered by zone id and vertex position into zones.
func scanZones(rows *sql.Rows) ([]zones.Zone, error) {
	defer rows.Close()

	var list []zones.Zone
	for rows.Next() {
		var (
			zoneID int64
			name   string
			point  zones.Point
		)
		if err := rows.Scan(&zoneID, &name, &point.ID, &point.Latitude, &point.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		if n := len(list); n == 0 || list[n-1].ID != zoneID {
			list = append(list, zones.Zone{ID: zoneID, Name: name})
		}
		last := &list[len(list)-1]
		last.AreaPoints = append(last.AreaPoints, point)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("failed to read zones", err)
	}
	return list, nil
}

// PointStorage reads point records.
type PointStorage struct {
	db *sql.DB
}

// NewPointStorage creates a new point storage instance
func NewPointStorage(db *sql.DB) *PointStorage {
	return &PointStorage{db: db}
}

// Point returns the coordinates of point id.
func (s *PointStorage) Point(ctx context.Context, id int64) (geometry.GeoPoint, error) {
	var p geometry.GeoPoint
	err := s.db.QueryRowContext(ctx, `SELECT latitude, longitude FROM points WHERE id = $1`, id).
		Scan(&p.Latitude, &p.Longitude)
	if err == sql.ErrNoRows {
		return p, fmt.Errorf("%w: %d", ErrPointNotFound, id)
	}
	if err != nil {
		return p, wrapError(fmt.Sprintf("failed to query point %d", id), err)
	}
	return p, nil
}
