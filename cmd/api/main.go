package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/bikelegs/internal/adapters/googlemaps"
	"github.com/samirrijal/bikelegs/internal/adapters/http"
	natsadapter "github.com/samirrijal/bikelegs/internal/adapters/nats"
	"github.com/samirrijal/bikelegs/internal/adapters/postgres"
	"github.com/samirrijal/bikelegs/internal/adapters/valkey"
	"github.com/samirrijal/bikelegs/internal/core/ports"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
	"github.com/samirrijal/bikelegs/internal/pkg/config"
	"github.com/samirrijal/bikelegs/internal/pkg/logging"
	"github.com/samirrijal/bikelegs/internal/pkg/metrics"
	"github.com/samirrijal/bikelegs/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("bikelegs-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Optional collaborators stay nil interfaces when unavailable.
	var cache ports.CacheService
	valkeyCache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer valkeyCache.Close()
		cache = valkeyCache
	}

	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
		events = publisher
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	var directions ports.DirectionsProvider
	if client, err := googlemaps.New(cfg.Directions); err != nil {
		slog.Warn("directions unavailable, trip conversion disabled", "error", err)
	} else {
		directions = client
	}

	tripRepo := postgres.NewTripRepo(db)
	legRepo := postgres.NewLegRepo(db)
	stationRepo := postgres.NewStationRepo(db)

	deps := &http.Dependencies{
		Legs:     usecases.NewLegService(tripRepo, legRepo, directions, cache, events, cfg.Directions.CacheTTL),
		Stations: usecases.NewStationService(nil, nil, stationRepo, events),
		NATS:     natsConn,
		DB:       db,
		Cache:    valkeyCache,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "bikelegs API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		case <-ctx.Done():
			return
		}
	}
}
