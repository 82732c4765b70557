package usecases_test

import (
	"context"
	"time"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/ports"
)

// --- Mock TripRepository ---

type mockTripRepo struct {
	getByIDFn     func(ctx context.Context, id string) (*domain.Trip, error)
	listPendingFn func(ctx context.Context, limit int) ([]string, error)
}

func (m *mockTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTripRepo) ListPending(ctx context.Context, limit int) ([]string, error) {
	if m.listPendingFn != nil {
		return m.listPendingFn(ctx, limit)
	}
	return nil, nil
}

// --- Mock LegRepository ---

type mockLegRepo struct {
	saved map[string][]domain.Leg
	err   error
}

func (m *mockLegRepo) ReplaceForTrip(ctx context.Context, tripID string, legs []domain.Leg) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string][]domain.Leg)
	}
	m.saved[tripID] = legs
	return nil
}

func (m *mockLegRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.Leg, error) {
	return m.saved[tripID], nil
}

// --- Mock DirectionsProvider ---

type mockDirections struct {
	steps []string
	err   error
	calls int
}

func (m *mockDirections) StepPolylines(ctx context.Context, origin, destination domain.Coordinate) ([]string, error) {
	m.calls++
	return m.steps, m.err
}

func (m *mockDirections) Mode() string { return "bicycling" }

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, ports.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	routes        []*domain.TripRoute
	stationCounts []int
}

func (m *mockPublisher) PublishLegsBuilt(ctx context.Context, route *domain.TripRoute) error {
	m.routes = append(m.routes, route)
	return nil
}

func (m *mockPublisher) PublishStationsRefreshed(ctx context.Context, count int, at time.Time) error {
	m.stationCounts = append(m.stationCounts, count)
	return nil
}
