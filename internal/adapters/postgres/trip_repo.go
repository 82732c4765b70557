package postgres

import (
	"context"
	"time"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// TripRepo implements ports.TripRepository.
type TripRepo struct {
	db *DB
}

// NewTripRepo creates a TripRepo backed by db.
func NewTripRepo(db *DB) *TripRepo { return &TripRepo{db: db} }

// GetByID loads a trip with both of its stations resolved.
func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	var (
		t                           domain.Trip
		startedAt, endedAt, builtAt *time.Time
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT t.id, t.started_at, t.ended_at, t.legs_built_at,
		       s.id, s.name, s.latitude, s.longitude, s.updated_at,
		       e.id, e.name, e.latitude, e.longitude, e.updated_at
		FROM trips t
		JOIN stations s ON s.id = t.start_station_id
		JOIN stations e ON e.id = t.end_station_id
		WHERE t.id = $1
	`, id).Scan(&t.ID, &startedAt, &endedAt, &builtAt,
		&t.StartStation.ID, &t.StartStation.Name, &t.StartStation.Location.Lat, &t.StartStation.Location.Lon, &t.StartStation.UpdatedAt,
		&t.EndStation.ID, &t.EndStation.Name, &t.EndStation.Location.Lat, &t.EndStation.Location.Lon, &t.EndStation.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if startedAt != nil {
		t.StartedAt = *startedAt
	}
	if endedAt != nil {
		t.EndedAt = *endedAt
	}
	if builtAt != nil {
		t.LegsBuiltAt = *builtAt
	}
	return &t, nil
}

// ListPending returns IDs of trips that were never converted, oldest first.
// A trip whose route produced zero legs is still marked and is not returned.
func (r *TripRepo) ListPending(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT t.id
		FROM trips t
		WHERE t.legs_built_at IS NULL
		ORDER BY t.started_at NULLS LAST, t.id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
