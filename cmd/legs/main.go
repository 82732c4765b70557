// Command legs fetches cycling directions for trips and stores their legs.
//
//	legs [-limit n] [trip-id ...]
//
// With trip IDs it converts exactly those trips and prints each route as
// JSON. Without, it converts up to -limit trips that were never converted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samirrijal/bikelegs/internal/adapters/googlemaps"
	natsadapter "github.com/samirrijal/bikelegs/internal/adapters/nats"
	"github.com/samirrijal/bikelegs/internal/adapters/postgres"
	"github.com/samirrijal/bikelegs/internal/adapters/valkey"
	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/ports"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
	"github.com/samirrijal/bikelegs/internal/pkg/config"
	"github.com/samirrijal/bikelegs/internal/pkg/logging"
	"github.com/samirrijal/bikelegs/internal/pkg/telemetry"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code; main exits only after run's deferred
// closes have completed.
func run() int {
	limit := flag.Int("limit", 100, "maximum number of pending trips to convert")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: legs [-limit n] [trip-id ...]")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load("bikelegs-legs")
	if err != nil {
		slog.Error("config", "error", err)
		return 1
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	directions, err := googlemaps.New(cfg.Directions)
	if err != nil {
		slog.Error("directions", "error", err)
		return 1
	}

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		slog.Error("database", "error", err)
		return 1
	}
	defer db.Close()

	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, directions will not be cached", "error", err)
	} else {
		defer c.Close()
		cache = c
	}

	var events ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events will not be published", "error", err)
	} else {
		defer p.Close()
		events = p
	}

	svc := usecases.NewLegService(
		postgres.NewTripRepo(db), postgres.NewLegRepo(db),
		directions, cache, events, cfg.Directions.CacheTTL,
	)
	return convert(ctx, svc, flag.Args(), *limit, os.Stdout)
}

// tripConverter is the part of usecases.LegService the command drives.
type tripConverter interface {
	ConvertTrip(ctx context.Context, tripID string) (*domain.TripRoute, error)
	ConvertPending(ctx context.Context, limit int) (usecases.ConvertSummary, error)
}

// convert converts the given trips, or the pending batch when ids is empty,
// and returns 1 if any trip failed.
func convert(ctx context.Context, svc tripConverter, ids []string, limit int, out io.Writer) int {
	if len(ids) == 0 {
		summary, err := svc.ConvertPending(ctx, limit)
		if err != nil {
			slog.Error("convert pending", "error", err)
			return 1
		}
		if summary.Failed > 0 {
			return 1
		}
		return 0
	}

	enc := json.NewEncoder(out)
	failed := 0
	for _, id := range ids {
		route, err := svc.ConvertTrip(ctx, id)
		if err != nil {
			slog.Error("trip conversion failed", "trip_id", id, "error", err)
			failed++
			continue
		}
		if err := enc.Encode(route); err != nil {
			slog.Error("write route", "error", err)
			return 1
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}
