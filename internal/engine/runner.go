package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/observability"
	"github.com/IshaanNene/MapGoat/internal/pipeline"
	"github.com/IshaanNene/MapGoat/internal/storage"
	"github.com/IshaanNene/MapGoat/internal/task"
)

// Runner starts jobs and tracks them in the task registry.
type Runner struct {
	cfg     *config.Config
	tasks   *task.Manager
	store   storage.Store
	metrics *observability.Metrics
	launch  LaunchFunc
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a Runner. Jobs started with Start live until they finish
// or Shutdown is called.
func NewRunner(cfg *config.Config, tasks *task.Manager, store storage.Store, m *observability.Metrics,
	launch LaunchFunc, logger *slog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:     cfg,
		tasks:   tasks,
		store:   store,
		metrics: m,
		launch:  launch,
		logger:  logger.With("component", "runner"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Tasks returns the task registry.
func (r *Runner) Tasks() *task.Manager { return r.tasks }

// Store returns the result store.
func (r *Runner) Store() storage.Store { return r.store }

// Metrics returns the shared metrics.
func (r *Runner) Metrics() *observability.Metrics { return r.metrics }

// Start registers a task and runs its job in the background.
func (r *Runner) Start(p Params) (*task.Task, error) {
	p, err := p.Normalize(r.cfg.Scraper)
	if err != nil {
		return nil, err
	}
	t := r.tasks.Create(p.Query, p.Many)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Run(r.ctx, t, p); err != nil {
			r.logger.Debug("job ended with error", "task_id", t.ID(), "error", err)
		}
	}()
	return t, nil
}

// Run executes a job for t synchronously.
func (r *Runner) Run(ctx context.Context, t *task.Task, p Params) error {
	p, err := p.Normalize(r.cfg.Scraper)
	if err != nil {
		t.Finish(task.StatusError)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := r.tasks.Attach(t.ID(), cancel); err != nil {
		t.Finish(task.StatusError)
		return err
	}
	r.metrics.TasksStarted.Add(1)
	r.logger.Info("job starting", "task_id", t.ID(), "query", p.Query, "many", p.Many,
		"lang", p.Lang, "region", p.Region, "deep_search", p.DeepSearch, "workers", p.Workers)

	browser, err := r.launch(ctx, p)
	if err != nil {
		t.MarkEnded()
		t.Log(fmt.Sprintf("Critical error: browser unavailable: %v", err))
		t.Finish(task.StatusError)
		r.metrics.TasksFailed.Add(1)
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			r.logger.Warn("browser close failed", "task_id", t.ID(), "error", err)
		}
	}()

	job := NewJob(p, r.cfg.Scraper, browser, t, r.store, r.newPipeline(), r.metrics, r.logger)
	return job.Run(ctx)
}

// Cancel stops the task with the given id. It reports whether a running
// task was cancelled.
func (r *Runner) Cancel(id string) bool {
	t, err := r.tasks.Get(id)
	if err != nil {
		return false
	}
	return t.Cancel()
}

// Shutdown cancels all running jobs and waits for them until ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newPipeline builds the normalisation chain for one job. Dedup state is
// per job, so places from earlier tasks are never dropped.
func (r *Runner) newPipeline() *pipeline.Pipeline {
	p := pipeline.Default(r.logger)
	if r.cfg.Scraper.RequireName {
		p.Use(&pipeline.RequiredNameMiddleware{})
	}
	if r.cfg.Scraper.DedupPlaces {
		p.Use(pipeline.NewDedupMiddleware())
	}
	return p
}
