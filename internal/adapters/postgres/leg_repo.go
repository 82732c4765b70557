package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

var legColumns = []string{
	"trip_id", "number", "start_station_id", "end_station_id",
	"start_latitude", "start_longitude", "end_latitude", "end_longitude",
}

// LegRepo implements ports.LegRepository.
type LegRepo struct {
	db *DB
}

// NewLegRepo creates a LegRepo backed by db.
func NewLegRepo(db *DB) *LegRepo { return &LegRepo{db: db} }

// ReplaceForTrip swaps a trip's legs for a new set and marks the trip as
// converted, in one transaction. An empty set still marks the trip.
func (r *LegRepo) ReplaceForTrip(ctx context.Context, tripID string, legs []domain.Leg) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE trips SET legs_built_at = now() WHERE id = $1`, tripID)
		if err != nil {
			return fmt.Errorf("mark trip built: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM trip_legs WHERE trip_id = $1`, tripID); err != nil {
			return fmt.Errorf("delete legs: %w", err)
		}
		if len(legs) == 0 {
			return nil
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{"trip_legs"}, legColumns,
			pgx.CopyFromSlice(len(legs), func(i int) ([]any, error) {
				l := legs[i]
				return []any{
					tripID, l.Number, l.StartStationID, l.EndStationID,
					l.Start.Lat, l.Start.Lon, l.End.Lat, l.End.Lon,
				}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy legs: %w", err)
		}
		if int(n) != len(legs) {
			return fmt.Errorf("copy legs: wrote %d of %d rows", n, len(legs))
		}
		return nil
	})
}

// ListByTrip returns a trip's legs in number order.
func (r *LegRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.Leg, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT number, start_station_id, end_station_id,
		       start_latitude, start_longitude, end_latitude, end_longitude
		FROM trip_legs
		WHERE trip_id = $1
		ORDER BY number
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	legs := []domain.Leg{}
	for rows.Next() {
		var l domain.Leg
		if err := rows.Scan(&l.Number, &l.StartStationID, &l.EndStationID,
			&l.Start.Lat, &l.Start.Lon, &l.End.Lat, &l.End.Lon); err != nil {
			return nil, err
		}
		legs = append(legs, l)
	}
	return legs, rows.Err()
}
