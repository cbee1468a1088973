package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/chipzone/server/internal/config"
	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// Open connects to PostgreSQL with the pool settings from cfg and verifies
// the connection.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrapError("failed to ping database", err)
	}

	log.Printf("[Database] Connected to %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return db, nil
}

// EnsureSchema creates the tables used by the zone engine if they do not
// exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return wrapError("failed to create schema", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS points (
	id BIGSERIAL PRIMARY KEY,
	latitude DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
	longitude DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
	UNIQUE (latitude, longitude)
);

CREATE TABLE IF NOT EXISTS zones (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE CHECK (btrim(name) <> ''),
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS zone_points (
	zone_id BIGINT NOT NULL REFERENCES zones(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	point_id BIGINT NOT NULL REFERENCES points(id),
	PRIMARY KEY (zone_id, position)
);

CREATE TABLE IF NOT EXISTS animal_types (
	id BIGSERIAL PRIMARY KEY,
	type TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS animals (
	id BIGSERIAL PRIMARY KEY,
	chipping_location_id BIGINT NOT NULL REFERENCES points(id),
	chipping_date_time TIMESTAMPTZ NOT NULL,
	death_date_time TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS animal_type_animals (
	animal_id BIGINT NOT NULL REFERENCES animals(id) ON DELETE CASCADE,
	type_id BIGINT NOT NULL REFERENCES animal_types(id) ON DELETE CASCADE,
	PRIMARY KEY (animal_id, type_id)
);

CREATE TABLE IF NOT EXISTS animal_locations (
	id BIGSERIAL PRIMARY KEY,
	animal_id BIGINT NOT NULL REFERENCES animals(id) ON DELETE CASCADE,
	location_point_id BIGINT NOT NULL REFERENCES points(id),
	visited_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_animal_type_animals_type ON animal_type_animals (type_id);
CREATE INDEX IF NOT EXISTS idx_animal_locations_animal_time ON animal_locations (animal_id, visited_at);
`
