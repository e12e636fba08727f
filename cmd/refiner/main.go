package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/bikepaths/internal/adapters/nats"
	"github.com/samirrijal/bikepaths/internal/adapters/postgres"
	"github.com/samirrijal/bikepaths/internal/adapters/roads"
	"github.com/samirrijal/bikepaths/internal/adapters/valkey"
	"github.com/samirrijal/bikepaths/internal/core/ports"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
	"github.com/samirrijal/bikepaths/internal/pkg/config"
	"github.com/samirrijal/bikepaths/internal/pkg/logging"
	"github.com/samirrijal/bikepaths/internal/pkg/telemetry"
	"github.com/samirrijal/bikepaths/internal/workflows"
)

func main() {
	cfg, err := config.Load("bikepaths-refiner")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup("bikepaths-refiner", cfg.Log.Level, cfg.Log.Format)

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

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Refined paths must drop their cached detail.
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, cached path details may be stale", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	var snapper ports.RoadSnapper
	if cfg.Roads.Enabled() {
		snapper = roads.NewClient(cfg.Roads.APIKey, cfg.Roads.BaseURL, time.Duration(cfg.Roads.Timeout)*time.Second)
	} else {
		slog.Warn("roads api key not set, every refinement will be reported as disabled")
	}

	refiner := usecases.NewRefinementService(snapper)
	paths := usecases.NewPathService(
		postgres.NewPathRepo(db),
		postgres.NewSegmentRepo(db),
		postgres.NewObstacleRepo(db),
		refiner, nil, cache,
		usecases.PathServiceConfig{
			ObstacleMaxDistanceMeters: cfg.Routing.ObstacleMaxDistanceMeters,
			DetailCacheTTLSeconds:     cfg.Routing.DetailCacheTTL,
		},
	)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RefinePathWorkflow)
	w.RegisterActivity(&workflows.RefinementActivities{
		Paths:   paths,
		Refiner: refiner,
	})

	// Stored paths are queued for refinement over NATS by the API.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeRefinementRequests(ctx, func(ctx context.Context, pathID string) error {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        workflows.WorkflowID(pathID),
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.RefinePathWorkflow, workflows.RefinePathInput{PathID: pathID})
		if err != nil {
			return err
		}
		slog.Info("refinement started", "path_id", pathID, "run_id", run.GetRunID())
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("refiner worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
