package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/engine"
	"github.com/IshaanNene/MapGoat/internal/observability"
	"github.com/IshaanNene/MapGoat/internal/storage"
	"github.com/IshaanNene/MapGoat/internal/task"
)

// JobStarter is the part of the engine runner the API drives.
type JobStarter interface {
	Start(p engine.Params) (*task.Task, error)
	Cancel(id string) bool
	Tasks() *task.Manager
	Store() storage.Store
	Metrics() *observability.Metrics
}

// Server serves the scraping HTTP API and the HTML pages.
type Server struct {
	mux     *http.ServeMux
	cfg     *config.Config
	runner  JobStarter
	index   *template.Template
	history *template.Template
	logger  *slog.Logger
}

// NewServer creates a Server with all routes registered.
func NewServer(cfg *config.Config, runner JobStarter, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		cfg:     cfg,
		runner:  runner,
		index:   template.Must(template.New("index").Parse(indexHTML)),
		history: template.Must(template.New("history").Parse(historyHTML)),
		logger:  logger.With("component", "api_server"),
	}
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("API server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /history", s.handleHistoryPage)

	// Tasks
	s.mux.HandleFunc("POST /parse", s.handleParse)
	s.mux.HandleFunc("GET /status/{id}", s.handleStatus)
	s.mux.HandleFunc("GET /tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /cancel/{id}", s.handleCancel)

	// Results
	s.mux.HandleFunc("GET /api/history", s.handleHistoryJSON)
	s.mux.HandleFunc("GET /export/{id}", s.handleExport)

	// Ops
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.runner.Metrics())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
		"storage": s.runner.Store().Name(),
		"tasks":   s.runner.Tasks().Len(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, s.index, map[string]any{
		"Lang":       s.cfg.Scraper.Lang,
		"Region":     s.cfg.Scraper.Region,
		"Many":       s.cfg.Scraper.DefaultMany,
		"DeepSearch": s.cfg.Scraper.DeepSearch,
	})
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		s.logger.Error("template render failed", "template", t.Name(), "error", err)
	}
}

// jsonResponse writes data as JSON, brotli-compressed when the client
// accepts it.
func (s *Server) jsonResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if !s.cfg.Server.Compression || !acceptsBrotli(r) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(data)
		return
	}

	w.Header().Set("Content-Encoding", "br")
	w.Header().Add("Vary", "Accept-Encoding")
	w.WriteHeader(status)
	bw := brotli.NewWriterLevel(w, brotli.DefaultCompression)
	if err := json.NewEncoder(bw).Encode(data); err != nil {
		s.logger.Warn("json encode failed", "error", err)
	}
	if err := bw.Close(); err != nil {
		s.logger.Warn("brotli close failed", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.jsonResponse(w, r, status, map[string]string{"error": msg})
}

func acceptsBrotli(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		enc, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.TrimSpace(enc) != "br" {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				return false
			}
		}
		return true
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
