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

	"github.com/samirrijal/bikepaths/internal/adapters/http"
	natsadapter "github.com/samirrijal/bikepaths/internal/adapters/nats"
	"github.com/samirrijal/bikepaths/internal/adapters/postgres"
	"github.com/samirrijal/bikepaths/internal/adapters/roads"
	"github.com/samirrijal/bikepaths/internal/adapters/valkey"
	"github.com/samirrijal/bikepaths/internal/core/ports"
	"github.com/samirrijal/bikepaths/internal/core/usecases"
	"github.com/samirrijal/bikepaths/internal/pkg/auth"
	"github.com/samirrijal/bikepaths/internal/pkg/config"
	"github.com/samirrijal/bikepaths/internal/pkg/logging"
	"github.com/samirrijal/bikepaths/internal/pkg/metrics"
	"github.com/samirrijal/bikepaths/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("bikepaths-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup("bikepaths-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go metrics.CollectDBPoolMetrics(ctx, db.Pool, 15*time.Second)

	// Cache and event bus are optional. Keep the interfaces nil when they are
	// unavailable so the services skip them.
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Road snapping
	var snapper ports.RoadSnapper
	if cfg.Roads.Enabled() {
		snapper = roads.NewClient(cfg.Roads.APIKey, cfg.Roads.BaseURL, time.Duration(cfg.Roads.Timeout)*time.Second)
	} else {
		slog.Info("roads api key not set, path refinement disabled")
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	// Repos
	pathRepo := postgres.NewPathRepo(db)
	segmentRepo := postgres.NewSegmentRepo(db)
	obstacleRepo := postgres.NewObstacleRepo(db)

	// Use cases
	refiner := usecases.NewRefinementService(snapper)
	pathSvc := usecases.NewPathService(pathRepo, segmentRepo, obstacleRepo, refiner, publisher, cache, usecases.PathServiceConfig{
		ObstacleMaxDistanceMeters: cfg.Routing.ObstacleMaxDistanceMeters,
		DetailCacheTTLSeconds:     cfg.Routing.DetailCacheTTL,
	})
	obstacleSvc := usecases.NewObstacleService(obstacleRepo, segmentRepo, publisher, cache, cfg.Routing.ObstacleMaxDistanceMeters)
	routeSvc := usecases.NewRouteSearchService(pathRepo, obstacleRepo, cache, usecases.RouteSearchConfig{
		ToleranceMeters: cfg.Routing.ToleranceMeters,
		CacheTTLSeconds: cfg.Routing.SearchCacheTTL,
	})

	deps := &http.Dependencies{
		Paths:     pathSvc,
		Obstacles: obstacleSvc,
		Routes:    routeSvc,
		Auth:      verifier,
		NATS:      natsConn,
		DB:        db,
		Cache:     vc,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "BikePaths API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "refinement", cfg.Roads.Enabled())
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
