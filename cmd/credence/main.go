// Command credence runs the evidence aggregation engine with its
// operational HTTP endpoints and an optional replayed observation feed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/credence/internal/adapters/http/api"
	service "github.com/okian/credence/internal/app"
	"github.com/okian/credence/internal/config"
	"github.com/okian/credence/internal/fetch"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, logger.Get())
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until ctx ends or the HTTP server fails.
func run(ctx context.Context, log logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	engine, err := service.New(ctx, engineOptions(cfg, log)...)
	if err != nil {
		log.Error(ctx, "failed to build engine", logger.Error(err))
		return err
	}
	if err := engine.Start(ctx); err != nil {
		log.Error(ctx, "failed to start engine", logger.Error(err))
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if err := engine.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "engine stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx, metrics.GetRefreshInterval())

	if cfg.FeedPath != "" {
		runner := fetch.NewRunner(engine, engine,
			fetch.WithConcurrency(cfg.FetchConcurrency),
			fetch.WithLogger(log.Named("fetch")),
		)
		go replayFeed(ctx, runner, cfg.FeedPath, cfg.FetchInterval, log)
	}

	mux := http.NewServeMux()
	api.NewServer(engine).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	}
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// engineOptions maps the loaded configuration onto engine options.
func engineOptions(cfg *config.Config, log logger.Logger) []service.Option {
	return []service.Option{
		service.WithLogger(log.Named("engine")),
		service.WithExtraSources(cfg.CatalogSources()),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMinCredibility(cfg.MinCredibility),
		service.WithMinConfidence(cfg.MinConfidence),
		service.WithAuthorityTTL(cfg.AuthorityTTL),
		service.WithAuthorityIssuers(cfg.AuthorityIssuers),
	}
}

// replayFeed submits the feed at path once, then again every interval until
// ctx ends. A zero interval replays it once.
func replayFeed(ctx context.Context, runner *fetch.Runner, path string, interval time.Duration, log logger.Logger) {
	replayOnce(ctx, runner, path, log)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			replayOnce(ctx, runner, path, log)
		}
	}
}

func replayOnce(ctx context.Context, runner *fetch.Runner, path string, log logger.Logger) {
	observations, err := fetch.LoadFeed(path)
	if err != nil {
		log.Error(ctx, "failed to load feed", logger.String("path", path), logger.Error(err))
		return
	}
	report, err := runner.Run(ctx, fetch.FeedFetchers(observations))
	if err != nil {
		log.Warn(ctx, "feed replay interrupted", logger.Error(err))
		return
	}
	log.Info(ctx, "feed replayed",
		logger.String("run_id", report.RunID.String()),
		logger.Int("sources", len(report.Sources)),
		logger.Int("submitted", report.Submitted()),
	)
}

// startSystemMetricsUpdater refreshes the system gauges every interval until
// ctx ends.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
