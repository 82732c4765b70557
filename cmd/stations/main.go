// Command stations downloads the operator's station list and writes it to
// the configured CSV file, optionally storing it in Postgres as well.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samirrijal/bikelegs/internal/adapters/citibike"
	"github.com/samirrijal/bikelegs/internal/adapters/csvexport"
	natsadapter "github.com/samirrijal/bikelegs/internal/adapters/nats"
	"github.com/samirrijal/bikelegs/internal/adapters/postgres"
	"github.com/samirrijal/bikelegs/internal/core/ports"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
	"github.com/samirrijal/bikelegs/internal/pkg/config"
	"github.com/samirrijal/bikelegs/internal/pkg/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	output := flag.String("output", "", "CSV path (defaults to supply.output_path)")
	store := flag.Bool("store", false, "also upsert the stations into Postgres")
	flag.Parse()

	cfg, err := config.Load("bikelegs-stations")
	if err != nil {
		slog.Error("config", "error", err)
		return 1
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed, err := citibike.New(cfg.Supply)
	if err != nil {
		slog.Error("supply client", "error", err)
		return 1
	}

	path := cfg.Supply.OutputPath
	if *output != "" {
		path = *output
	}
	exporter := csvexport.NewStationWriter(path)

	var repo ports.StationRepository
	var events ports.EventPublisher
	if *store {
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			slog.Error("database", "error", err)
			return 1
		}
		defer db.Close()
		repo = postgres.NewStationRepo(db)

		if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
			slog.Warn("nats unavailable, refresh will not be announced", "error", err)
		} else {
			defer p.Close()
			events = p
		}
	}

	count, err := usecases.NewStationService(feed, exporter, repo, events).Refresh(ctx)
	if err != nil {
		slog.Error("refresh stations", "error", err)
		return 1
	}
	slog.Info("station export complete", "count", count, "path", exporter.Path())
	return 0
}
