package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/ports"
	"github.com/samirrijal/bikelegs/internal/pkg/metrics"
	"github.com/samirrijal/bikelegs/internal/pkg/telemetry"
)

// shortSiteID matches IDs like "5788.1" that lost their trailing zero
// upstream; trip data refers to the station as "5788.10".
var shortSiteID = regexp.MustCompile(`^\d+\.\d$`)

// NormalizeStationID restores the trailing zero of a short site ID.
func NormalizeStationID(id string) string {
	if shortSiteID.MatchString(id) {
		return id + "0"
	}
	return id
}

// StationService refreshes and serves station metadata.
type StationService struct {
	feed     ports.StationFeed
	exporter ports.StationExporter
	stations ports.StationRepository
	events   ports.EventPublisher
	now      func() time.Time
}

// NewStationService creates a new StationService. Every collaborator except
// feed may be nil and is then skipped.
func NewStationService(
	feed ports.StationFeed,
	exporter ports.StationExporter,
	stations ports.StationRepository,
	events ports.EventPublisher,
) *StationService {
	return &StationService{
		feed:     feed,
		exporter: exporter,
		stations: stations,
		events:   events,
		now:      time.Now,
	}
}

// Refresh fetches the current station list, normalises IDs, sorts by ID and
// hands the snapshot to the exporter and repository. It returns the number of
// stations written.
func (s *StationService) Refresh(ctx context.Context) (int, error) {
	if s.feed == nil {
		return 0, errors.New("station feed not configured")
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRefreshStations)
	defer span.End()

	stations, err := s.feed.FetchStations(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("fetch stations: %w", err)
	}

	for i := range stations {
		id := NormalizeStationID(stations[i].ID)
		if id != stations[i].ID {
			slog.InfoContext(ctx, "normalizing station ID",
				"name", stations[i].Name, "from", stations[i].ID, "to", id)
			stations[i].ID = id
		}
	}
	sort.SliceStable(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })

	if s.exporter != nil {
		if err := s.exporter.WriteStations(ctx, stations); err != nil {
			return 0, fmt.Errorf("export stations: %w", err)
		}
	}
	if s.stations != nil {
		if err := s.stations.UpsertBatch(ctx, stations); err != nil {
			return 0, fmt.Errorf("store stations: %w", err)
		}
	}
	if s.events != nil {
		if err := s.events.PublishStationsRefreshed(ctx, len(stations), s.now().UTC()); err != nil {
			slog.WarnContext(ctx, "publish stations refreshed failed", "error", err)
		}
	}

	span.SetAttributes(attribute.Int(telemetry.AttrStationCount, len(stations)))
	metrics.StationsExported.Set(float64(len(stations)))
	slog.InfoContext(ctx, "stations refreshed", "count", len(stations))
	return len(stations), nil
}

// List returns the stored stations.
func (s *StationService) List(ctx context.Context) ([]domain.Station, error) {
	if s.stations == nil {
		return nil, errors.New("station repository not configured")
	}
	return s.stations.List(ctx)
}
