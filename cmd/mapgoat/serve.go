package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/MapGoat/internal/api"
	"github.com/IshaanNene/MapGoat/internal/config"
)

var (
	serveHost string
	servePort int
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long:  "Serve the search form, task API, history, exports and metrics over HTTP.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := bootstrap(func(cfg *config.Config) {
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}
	})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		a.Close(shutdownCtx)
	}()

	if cfg.Metrics.Enabled {
		if err := a.metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}
	if a.proxies != nil && a.proxies.Count() > 0 {
		go a.proxies.HealthCheck(ctx, cfg.Scraper.SearchBaseURL)
	}

	return api.NewServer(cfg, a.runner, logger).Run(ctx)
}
