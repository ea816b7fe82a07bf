package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/engine"
	"github.com/IshaanNene/MapGoat/internal/fetcher"
	"github.com/IshaanNene/MapGoat/internal/observability"
	"github.com/IshaanNene/MapGoat/internal/storage"
	"github.com/IshaanNene/MapGoat/internal/task"
)

// app holds the components shared by the serve and scrape commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   storage.Store
	metrics *observability.Metrics
	proxies *fetcher.ProxyManager
	runner  *engine.Runner
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) *app {
	store := openStore(ctx, cfg.Storage, logger)

	var proxies *fetcher.ProxyManager
	if cfg.Proxy.Enabled {
		proxies = fetcher.NewProxyManager(cfg.Proxy, logger)
	}

	metrics := observability.NewMetrics(logger)
	tasks := task.NewManager(cfg.Scraper.MaxLogLines, logger)
	runner := engine.NewRunner(cfg, tasks, store, metrics, fetcher.Launcher(cfg, proxies, logger), logger)

	logger.Info("mapgoat ready",
		"version", config.Version,
		"storage", store.Name(),
		"workers", cfg.Scraper.MaxWorkers,
		"headless", cfg.Browser.Headless,
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		metrics: metrics,
		proxies: proxies,
		runner:  runner,
	}
}

// openStore opens the configured backend. An unreachable database is not
// fatal: scraping continues and results stay in memory for the task.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) storage.Store {
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Warn("storage unavailable, continuing without database",
			"driver", storage.Driver(cfg),
			"error", err,
		)
		return storage.NopStore{}
	}
	return store
}

// Close stops running jobs and releases the store.
func (a *app) Close(ctx context.Context) {
	if err := a.runner.Shutdown(ctx); err != nil {
		a.logger.Warn("jobs still running at shutdown", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
}

// bootstrap loads config, applies overrides, validates and builds the logger.
func bootstrap(override func(*config.Config)) (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}
