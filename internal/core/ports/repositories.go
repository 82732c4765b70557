package ports

import (
	"context"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// StationRepository persists bike-share stations.
type StationRepository interface {
	UpsertBatch(ctx context.Context, stations []domain.Station) error
	List(ctx context.Context) ([]domain.Station, error)
}

// TripRepository reads trips together with their start and end stations.
type TripRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	// ListPending returns IDs of trips that have never been converted.
	ListPending(ctx context.Context, limit int) ([]string, error)
}

// LegRepository persists the legs derived from a trip's directions.
type LegRepository interface {
	// ReplaceForTrip stores legs and marks the trip converted, even when
	// legs is empty.
	ReplaceForTrip(ctx context.Context, tripID string, legs []domain.Leg) error
	ListByTrip(ctx context.Context, tripID string) ([]domain.Leg, error)
}
