package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/UnknownOlympus/nimbus/internal/models"
)

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS weather_snapshots (
		id BIGSERIAL PRIMARY KEY,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		current JSONB NOT NULL,
		forecast JSONB NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

const insertSnapshot = `
	INSERT INTO weather_snapshots (latitude, longitude, current, forecast)
	VALUES ($1, $2, $3, $4);
`

// EnsureSchema creates the snapshot table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create weather_snapshots table: %w", err)
	}

	return nil
}

// SaveSnapshot stores the result of a successful fetch cycle for the given coordinates.
// Both records are kept as raw JSON so provider schema changes need no migration.
func (r *Repository) SaveSnapshot(ctx context.Context, coords models.Coordinates, weather models.Weather) error {
	current, err := json.Marshal(weather.Current)
	if err != nil {
		return fmt.Errorf("failed to encode current weather: %w", err)
	}

	forecast, err := json.Marshal(weather.Forecast)
	if err != nil {
		return fmt.Errorf("failed to encode forecast weather: %w", err)
	}

	if _, err = r.db.Exec(ctx, insertSnapshot, coords.Latitude, coords.Longitude, current, forecast); err != nil {
		return fmt.Errorf("failed to insert weather snapshot: %w", err)
	}

	r.log.DebugContext(ctx, "Weather snapshot stored",
		"latitude", coords.Latitude, "longitude", coords.Longitude)

	return nil
}
