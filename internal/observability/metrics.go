package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational metrics for scraping jobs.
type Metrics struct {
	// Task metrics
	TasksStarted   atomic.Int64
	TasksCompleted atomic.Int64
	TasksFailed    atomic.Int64
	TasksCancelled atomic.Int64

	// Discovery metrics
	SearchesRun     atomic.Int64
	LinksDiscovered atomic.Int64

	// Detail metrics
	PlacesParsed atomic.Int64
	PlacesFailed atomic.Int64
	PlacesStored atomic.Int64
	StoreErrors  atomic.Int64

	ActiveWorkers atomic.Int32

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type metric struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) collect() []metric {
	return []metric{
		{"mapgoat_tasks_started_total", "Total scraping tasks started", "counter", m.TasksStarted.Load()},
		{"mapgoat_tasks_completed_total", "Total scraping tasks completed", "counter", m.TasksCompleted.Load()},
		{"mapgoat_tasks_failed_total", "Total scraping tasks failed", "counter", m.TasksFailed.Load()},
		{"mapgoat_tasks_cancelled_total", "Total scraping tasks cancelled", "counter", m.TasksCancelled.Load()},
		{"mapgoat_searches_run_total", "Total search result pages scrolled", "counter", m.SearchesRun.Load()},
		{"mapgoat_links_discovered_total", "Total unique place links discovered", "counter", m.LinksDiscovered.Load()},
		{"mapgoat_places_parsed_total", "Total place pages parsed", "counter", m.PlacesParsed.Load()},
		{"mapgoat_places_failed_total", "Total place pages that failed", "counter", m.PlacesFailed.Load()},
		{"mapgoat_places_stored_total", "Total places persisted", "counter", m.PlacesStored.Load()},
		{"mapgoat_store_errors_total", "Total failed persistence attempts", "counter", m.StoreErrors.Load()},
		{"mapgoat_active_workers", "Currently active detail workers", "gauge", int64(m.ActiveWorkers.Load())},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, mt := range m.collect() {
		fmt.Fprintf(w, "# HELP %s %s\n", mt.name, mt.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", mt.name, mt.kind)
		fmt.Fprintf(w, "%s %d\n", mt.name, mt.value)
	}
}

// StartServer serves metrics on their own port until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle("GET "+path, m)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"tasks_started":    m.TasksStarted.Load(),
		"tasks_completed":  m.TasksCompleted.Load(),
		"tasks_failed":     m.TasksFailed.Load(),
		"tasks_cancelled":  m.TasksCancelled.Load(),
		"searches_run":     m.SearchesRun.Load(),
		"links_discovered": m.LinksDiscovered.Load(),
		"places_parsed":    m.PlacesParsed.Load(),
		"places_failed":    m.PlacesFailed.Load(),
		"places_stored":    m.PlacesStored.Load(),
		"store_errors":     m.StoreErrors.Load(),
		"active_workers":   int64(m.ActiveWorkers.Load()),
	}
}
