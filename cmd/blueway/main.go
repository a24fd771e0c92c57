// Command blueway runs the live trip registry, the passenger ride simulator
// and the HTTP API in one process. main only wires dependencies.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"blueway/internal/api"
	"blueway/internal/config"
	"blueway/internal/db"
	"blueway/internal/demo"
	"blueway/internal/livetrip"
	"blueway/internal/metrics"
	"blueway/internal/motion"
	"blueway/internal/profiling"
	"blueway/internal/publisher"
	"blueway/internal/ride"
	"blueway/internal/routing"
	"blueway/internal/stops"
	"blueway/internal/store"
	"blueway/internal/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	if err != nil {
		slog.Error("blueway stopped", "error", err)
		os.Exit(1)
	}
}

// run wires and serves until ctx ends. Every deferred cleanup has run by the
// time it returns.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	shutdownTracing, err := tracing.InitTracing(ctx, version)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer shutdownTracing()
	stopProfiling := profiling.InitProfiling(profiling.ConfigFromEnv(), version)
	defer stopProfiling()

	// Documents: Postgres when configured, memory otherwise
	var docs store.Documents = store.NewMemory()
	if cfg.DatabaseURL != "" {
		if err := db.MigrateDSN(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("database migration: %w", err)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("create database pool: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		docs = store.NewPostgres(pool)
		slog.Info("using postgres document store")
	} else {
		slog.Info("DATABASE_URL not set, using in-memory document store")
	}

	catalog := stops.Default()
	if cfg.RoutesFile != "" {
		if catalog, err = stops.LoadGPXFile(cfg.RoutesFile); err != nil {
			return fmt.Errorf("load routes file %q: %w", cfg.RoutesFile, err)
		}
	}
	slog.Info("catalog loaded", "stops", len(catalog.AllStopPoints()), "routes", len(catalog.AllRoutes()))
	router := routing.New()

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(metrics.Settings{
			FrameInterval:   cfg.FrameInterval,
			PollInterval:    cfg.PollInterval,
			SpeedMultiplier: cfg.SpeedMultiplier,
			Capacity:        string(cfg.CapacityPolicy),
		})
		msrv := mcol.Serve(cfg.MetricsAddr)
		defer shutdownServer(msrv, 3*time.Second)
	}

	regOpts := []livetrip.Option{
		livetrip.WithCapacityPolicy(cfg.CapacityPolicy),
		livetrip.WithDuplicatePolicy(cfg.DuplicatePolicy),
		livetrip.WithNotificationLimit(cfg.NotificationLimit),
		livetrip.WithHistoryLimit(cfg.HistoryLimit),
		livetrip.WithFare(cfg.Fare),
		livetrip.WithRouteLocator(catalog),
		livetrip.WithClock(func() time.Time { return time.Now().In(cfg.Location) }),
	}
	runOpts := []motion.RunnerOption{
		motion.WithFrameInterval(cfg.FrameInterval),
		motion.WithSpeedMultiplier(cfg.SpeedMultiplier),
	}
	rideOpts := []ride.Option{}
	if mcol != nil {
		regOpts = append(regOpts, livetrip.WithMetrics(mcol))
		runOpts = append(runOpts, motion.WithRunnerMetrics(mcol))
		rideOpts = append(rideOpts, ride.WithMetrics(mcol))
	}

	registry := livetrip.New(docs, regOpts...)
	if err := registry.Restore(ctx); err != nil {
		return fmt.Errorf("restore active trip: %w", err)
	}

	// Publishing is optional; without NATS_URL events stay in-process
	if cfg.NATSURL != "" {
		var pm publisher.PublisherMetrics
		if mcol != nil {
			pm = mcol
		}
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, pm)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer pub.Close()
		sub := registry.SubscribeAll(pub.TripEventHandler())
		defer registry.Unsubscribe(sub)
		rideOpts = append(rideOpts, ride.WithPositionSink(pub))
	}

	rideOpts = append(rideOpts, ride.WithRunnerOptions(runOpts...))
	rides := ride.NewManager(catalog, router, rideOpts...)
	defer rides.Stop()

	if cfg.DemoRiders {
		riders := demo.New(registry)
		riders.Start()
		defer riders.Stop()
		slog.Info("demo riders enabled")
	}

	server := api.NewServer(registry, catalog, router, rides,
		api.WithPollInterval(cfg.PollInterval),
		api.WithAllowedOrigins(cfg.CORSOrigins),
		api.WithLogger(logger),
	)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case serveErr = <-errc:
		serveErr = fmt.Errorf("http server: %w", serveErr)
	}

	// Deferred calls then stop rides, demo riders, the publisher and the
	// metrics server in reverse order of start.
	shutdownServer(srv, 15*time.Second)
	slog.Info("server stopped")
	return serveErr
}

func shutdownServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "addr", srv.Addr, "error", err)
	}
}
