package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/polyline"
	"github.com/samirrijal/bikelegs/internal/core/ports"
	"github.com/samirrijal/bikelegs/internal/pkg/geospatial"
	"github.com/samirrijal/bikelegs/internal/pkg/metrics"
	"github.com/samirrijal/bikelegs/internal/pkg/telemetry"
)

// ConvertSummary reports the outcome of a batch conversion.
type ConvertSummary struct {
	Converted int `json:"converted"`
	Failed    int `json:"failed"`
	Legs      int `json:"legs"`
}

// LegService turns trips into legs using cycling directions.
type LegService struct {
	trips      ports.TripRepository
	legs       ports.LegRepository
	directions ports.DirectionsProvider
	cache      ports.CacheService
	events     ports.EventPublisher
	cacheTTL   int
}

// NewLegService creates a new LegService. cache and events may be nil;
// cacheTTL is in seconds and 0 disables caching.
func NewLegService(
	trips ports.TripRepository,
	legs ports.LegRepository,
	directions ports.DirectionsProvider,
	cache ports.CacheService,
	events ports.EventPublisher,
	cacheTTL int,
) *LegService {
	return &LegService{
		trips:      trips,
		legs:       legs,
		directions: directions,
		cache:      cache,
		events:     events,
		cacheTTL:   cacheTTL,
	}
}

// ConvertTrip fetches directions for a trip, derives its legs and stores them.
// A malformed step polyline fails the whole trip; nothing is persisted.
func (s *LegService) ConvertTrip(ctx context.Context, tripID string) (*domain.TripRoute, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanConvertTrip,
		trace.WithAttributes(attribute.String(telemetry.AttrTripID, tripID)))
	defer span.End()

	route, err := s.convert(ctx, tripID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.TripsConverted.WithLabelValues(failureLabel(err)).Inc()
		return nil, err
	}

	span.SetAttributes(attribute.Int(telemetry.AttrLegCount, len(route.Legs)))
	metrics.TripsConverted.WithLabelValues("ok").Inc()
	metrics.LegsBuilt.Add(float64(len(route.Legs)))
	return route, nil
}

func (s *LegService) convert(ctx context.Context, tripID string) (*domain.TripRoute, error) {
	if s.trips == nil || s.directions == nil {
		return nil, errors.New("trip repository and directions provider are required")
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load trip %s: %w", tripID, err)
	}

	steps, err := s.stepPolylines(ctx, trip.StartStation.Location, trip.EndStation.Location)
	if err != nil {
		return nil, fmt.Errorf("directions for trip %s: %w", tripID, err)
	}

	decoded := make([][]domain.Coordinate, len(steps))
	for i, points := range steps {
		coords, err := polyline.Decode(points)
		if err != nil {
			metrics.PolylineDecodeErrors.Inc()
			return nil, fmt.Errorf("trip %s step %d: %w", tripID, i, err)
		}
		decoded[i] = coords
	}

	route := newTripRoute(tripID, domain.BuildRouteLegs(decoded, trip.Endpoints()))

	if s.legs != nil {
		if err := s.legs.ReplaceForTrip(ctx, tripID, route.Legs); err != nil {
			return nil, fmt.Errorf("save legs for trip %s: %w", tripID, err)
		}
	}

	if s.events != nil {
		if err := s.events.PublishLegsBuilt(ctx, route); err != nil {
			slog.WarnContext(ctx, "publish legs built failed", "trip_id", tripID, "error", err)
		}
	}

	return route, nil
}

// ConvertPending converts up to limit trips that were never converted. A trip
// that fails is logged and skipped; only listing errors and cancellation
// abort the batch.
func (s *LegService) ConvertPending(ctx context.Context, limit int) (ConvertSummary, error) {
	var summary ConvertSummary
	if s.trips == nil {
		return summary, errors.New("trip repository not configured")
	}

	ids, err := s.trips.ListPending(ctx, limit)
	if err != nil {
		return summary, fmt.Errorf("list pending trips: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		route, err := s.ConvertTrip(ctx, id)
		if err != nil {
			summary.Failed++
			slog.WarnContext(ctx, "trip conversion failed", "trip_id", id, "error", err)
			continue
		}
		summary.Converted++
		summary.Legs += len(route.Legs)
	}

	slog.InfoContext(ctx, "pending trips converted",
		"converted", summary.Converted, "failed", summary.Failed, "legs", summary.Legs)
	return summary, nil
}

// Route returns the stored legs of a trip as a TripRoute. A trip with no
// legs yet yields an empty route; an unknown trip yields domain.ErrNotFound.
func (s *LegService) Route(ctx context.Context, tripID string) (*domain.TripRoute, error) {
	if s.legs == nil {
		return nil, errors.New("leg repository not configured")
	}
	legs, err := s.legs.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list legs for trip %s: %w", tripID, err)
	}
	if len(legs) == 0 && s.trips != nil {
		if _, err := s.trips.GetByID(ctx, tripID); err != nil {
			return nil, fmt.Errorf("load trip %s: %w", tripID, err)
		}
	}
	if legs == nil {
		legs = []domain.Leg{}
	}
	return newTripRoute(tripID, legs), nil
}

// DecodeRoute decodes a single encoded polyline into legs without touching
// any collaborator.
func (s *LegService) DecodeRoute(points string, precision int, endpoints domain.TripEndpoints) (*domain.TripRoute, error) {
	coords, err := polyline.DecodeWithPrecision(points, precision)
	if err != nil {
		return nil, err
	}
	return newTripRoute("", domain.BuildLegs(coords, endpoints)), nil
}

func (s *LegService) stepPolylines(ctx context.Context, origin, destination domain.Coordinate) ([]string, error) {
	useCache := s.cache != nil && s.cacheTTL > 0
	cacheKey := fmt.Sprintf("directions:%s:%.5f,%.5f:%.5f,%.5f",
		s.directions.Mode(), origin.Lat, origin.Lon, destination.Lat, destination.Lon)

	if useCache {
		data, err := s.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			var steps []string
			if err := json.Unmarshal(data, &steps); err == nil {
				metrics.CacheHits.WithLabelValues("directions").Inc()
				return steps, nil
			}
		case errors.Is(err, ports.ErrCacheMiss):
			metrics.CacheMisses.WithLabelValues("directions").Inc()
		default:
			slog.DebugContext(ctx, "directions cache read failed", "key", cacheKey, "error", err)
		}
	}

	steps, err := s.directions.StepPolylines(ctx, origin, destination)
	if err != nil {
		return nil, err
	}

	if useCache {
		if data, err := json.Marshal(steps); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}
	return steps, nil
}

func newTripRoute(tripID string, legs []domain.Leg) *domain.TripRoute {
	return &domain.TripRoute{
		TripID:         tripID,
		Legs:           legs,
		DistanceMeters: geospatial.LegsLength(legs),
		Bounds:         geospatial.LegsBounds(legs),
	}
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, polyline.ErrMalformedEncoding):
		return "malformed_encoding"
	case errors.Is(err, domain.ErrRetrievalFailure):
		return "retrieval_failure"
	case errors.Is(err, domain.ErrUnexpectedResponseShape):
		return "unexpected_response_shape"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
