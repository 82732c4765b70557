package ports

import (
	"context"
	"errors"
	"time"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// ErrCacheMiss is returned by CacheService.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// DirectionsProvider fetches cycling directions between two points.
type DirectionsProvider interface {
	// StepPolylines returns the encoded polyline of every step of the first
	// leg of the first route, in step order.
	StepPolylines(ctx context.Context, origin, destination domain.Coordinate) ([]string, error)
	// Mode is the travel mode requested, used to scope cache keys.
	Mode() string
}

// StationFeed fetches the operator's current station list.
type StationFeed interface {
	FetchStations(ctx context.Context) ([]domain.Station, error)
}

// StationExporter writes a station snapshot to an export sink.
type StationExporter interface {
	WriteStations(ctx context.Context, stations []domain.Station) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLegsBuilt(ctx context.Context, route *domain.TripRoute) error
	PublishStationsRefreshed(ctx context.Context, count int, at time.Time) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
