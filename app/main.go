package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lysyi3m/cti-comb/app/api"
	"github.com/lysyi3m/cti-comb/app/cfg"
	"github.com/lysyi3m/cti-comb/app/connector"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/ingest"
	"github.com/lysyi3m/cti-comb/app/logging"
	"github.com/lysyi3m/cti-comb/app/metrics"
	"github.com/lysyi3m/cti-comb/app/queue"
	"github.com/lysyi3m/cti-comb/app/scheduler"
	"github.com/lysyi3m/cti-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logging.Setup(appCfg.Debug)

	slog.Info("Starting CTI Comb", "version", appCfg.Version, "mode", appCfg.Mode)

	ctx := context.Background()

	db, err := openDatabase(ctx)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		db.Close()
		os.Exit(1)
	}
	slog.Info("Database ready", "dialect", string(db.Dialect()), "schema_version", version, "dirty", dirty)

	q, err := openQueue(ctx)
	if err != nil {
		slog.Error("Failed to open job queue", "error", err)
		db.Close()
		os.Exit(1)
	}

	sourceRepo := database.NewSourceStore(db)
	itemRepo := database.NewItemStore(db)

	httpClient := &http.Client{Timeout: appCfg.FetchTimeout}
	registry := connector.NewDefaultRegistry(connector.NewFetcher(httpClient, appCfg.UserAgent))

	// Every mode enqueues through the worker, only worker modes consume.
	worker := tasks.NewWorker(q, sourceRepo, registry, ingest.NewGateway(itemRepo), tasks.WorkerOptions{
		Concurrency:  appCfg.WorkerConcurrency,
		FetchTimeout: appCfg.FetchTimeout,
		JobTimeout:   appCfg.JobTimeout,
	})
	if appCfg.RunsWorker() {
		worker.Start()
	}

	promoterCtx, stopPromoter := context.WithCancel(ctx)
	var promoterWG sync.WaitGroup
	promoterWG.Add(1)
	go func() {
		defer promoterWG.Done()
		queue.RunPromoter(promoterCtx, q, queue.DefaultPromoteInterval, func(n int) {
			metrics.RepeatsPromoted.Add(float64(n))
		})
	}()

	var sched *scheduler.Scheduler
	if appCfg.RunsScheduler() {
		sched = scheduler.NewScheduler(q, sourceRepo, appCfg.ReconcileInterval)
		sched.Start()
	}

	// Keep a typed nil out of the handler's interface.
	var reconciler api.ReconcilerInterface
	if sched != nil {
		reconciler = sched
	}

	handler := api.NewHandler(sourceRepo, itemRepo, q, worker, reconciler, appCfg.Mode, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server started", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if sched != nil {
		sched.Stop()
	}
	stopPromoter()
	promoterWG.Wait()

	if appCfg.RunsWorker() {
		worker.Stop()
	}

	if err := q.Close(); err != nil {
		slog.Error("Queue close error", "error", err)
	}
	if err := db.Close(); err != nil {
		slog.Error("Database close error", "error", err)
	}

	slog.Info("CTI Comb stopped")
}

func openDatabase(ctx context.Context) (*database.DB, error) {
	c := cfg.Get()

	switch c.DBDriver {
	case cfg.DriverSQLite:
		return database.Open(ctx, database.DialectSQLite, c.SQLitePath)
	case cfg.DriverPostgres:
		return database.Open(ctx, database.DialectPostgres, c.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
}

func openQueue(ctx context.Context) (queue.Queue, error) {
	c := cfg.Get()

	if c.QueueDriver == cfg.QueueRedis {
		return queue.NewRedisQueue(ctx, queue.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Name:     c.QueueName,
		})
	}
	return queue.NewMemoryQueue(queue.DefaultCapacity), nil
}
