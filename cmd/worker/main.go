// Command worker runs the Temporal worker for the leg backfill workflow.
//
//	worker            run the worker until interrupted
//	worker trigger N  start one backfill of up to N trips and wait for it
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/bikelegs/internal/adapters/googlemaps"
	natsadapter "github.com/samirrijal/bikelegs/internal/adapters/nats"
	"github.com/samirrijal/bikelegs/internal/adapters/postgres"
	"github.com/samirrijal/bikelegs/internal/adapters/valkey"
	"github.com/samirrijal/bikelegs/internal/core/ports"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
	"github.com/samirrijal/bikelegs/internal/pkg/config"
	"github.com/samirrijal/bikelegs/internal/pkg/logging"
	"github.com/samirrijal/bikelegs/internal/workflows"
)

func main() {
	cfg, err := config.Load("bikelegs-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if len(os.Args) > 1 && os.Args[1] == "trigger" {
		limit := workflows.DefaultBackfillLimit
		if len(os.Args) > 2 {
			if limit, err = strconv.Atoi(os.Args[2]); err != nil {
				log.Fatalf("limit: %v", err)
			}
		}
		if err := trigger(c, cfg.Temporal.TaskQueue, limit); err != nil {
			log.Fatalf("backfill: %v", err)
		}
		return
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	directions, err := googlemaps.New(cfg.Directions)
	if err != nil {
		log.Fatalf("directions: %v", err)
	}

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	var events ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer p.Close()
		events = p
	}

	tripRepo := postgres.NewTripRepo(db)
	legs := usecases.NewLegService(tripRepo, postgres.NewLegRepo(db), directions, cache, events, cfg.Directions.CacheTTL)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.LegBackfillWorkflow)
	w.RegisterActivity(&workflows.LegActivities{
		Trips: tripRepo,
		Legs:  legs,
	})

	slog.Info("backfill worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func trigger(c client.Client, taskQueue string, limit int) error {
	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("leg-backfill-%d", time.Now().Unix()),
		TaskQueue: taskQueue,
	}, workflows.LegBackfillWorkflow, workflows.BackfillInput{Limit: limit})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	slog.Info("backfill started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var result workflows.BackfillResult
	if err := run.Get(ctx, &result); err != nil {
		return err
	}
	slog.Info("backfill finished", "converted", result.Converted, "failed", result.Failed, "legs", result.Legs)
	return nil
}
