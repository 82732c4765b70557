package workflows

import (
	"context"
	"fmt"

	"github.com/samirrijal/bikelegs/internal/core/ports"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
)

// LegActivities holds the activity implementations for the backfill workflow.
type LegActivities struct {
	Trips ports.TripRepository
	Legs  *usecases.LegService
}

// ListPendingTrips returns up to limit trip IDs that were never converted.
func (a *LegActivities) ListPendingTrips(ctx context.Context, limit int) ([]string, error) {
	ids, err := a.Trips.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending trips: %w", err)
	}
	return ids, nil
}

// ConvertTrip builds and stores the legs of one trip and returns how many
// were built.
func (a *LegActivities) ConvertTrip(ctx context.Context, tripID string) (int, error) {
	route, err := a.Legs.ConvertTrip(ctx, tripID)
	if err != nil {
		return 0, err
	}
	return len(route.Legs), nil
}
