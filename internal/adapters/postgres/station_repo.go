package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// StationRepo implements ports.StationRepository.
type StationRepo struct {
	db *DB
}

// NewStationRepo creates a StationRepo backed by db.
func NewStationRepo(db *DB) *StationRepo { return &StationRepo{db: db} }

func (r *StationRepo) UpsertBatch(ctx context.Context, stations []domain.Station) error {
	if len(stations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stations {
		var updatedAt any
		if !s.UpdatedAt.IsZero() {
			updatedAt = s.UpdatedAt
		}
		batch.Queue(`
			INSERT INTO stations (id, name, latitude, longitude, updated_at)
			VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()))
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, latitude = EXCLUDED.latitude,
			    longitude = EXCLUDED.longitude, updated_at = EXCLUDED.updated_at
		`, s.ID, s.Name, s.Location.Lat, s.Location.Lon, updatedAt)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range stations {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch item %d (%s): %w", i, stations[i].ID, err)
		}
	}
	return nil
}

func (r *StationRepo) List(ctx context.Context) ([]domain.Station, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, latitude, longitude, updated_at
		FROM stations ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := []domain.Station{}
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Location.Lat, &s.Location.Lon, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}
