package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/observability"
	"github.com/IshaanNene/MapGoat/internal/parser"
	"github.com/IshaanNene/MapGoat/internal/pipeline"
	"github.com/IshaanNene/MapGoat/internal/regions"
	"github.com/IshaanNene/MapGoat/internal/storage"
	"github.com/IshaanNene/MapGoat/internal/task"
	"github.com/IshaanNene/MapGoat/internal/types"
)

// errDropped marks a place the pipeline filtered out.
var errDropped = errors.New("place dropped by pipeline")

// Job runs one scrape: link discovery, optional deep search, then concurrent
// detail parsing into the task and the store.
type Job struct {
	params    Params
	cfg       config.ScraperConfig
	browser   Browser
	task      *task.Task
	store     storage.Store
	pipeline  *pipeline.Pipeline
	metrics   *observability.Metrics
	collector *Collector
	links     *LinkSet
	logger    *slog.Logger

	saveMu sync.Mutex
	empty  bool
}

// NewJob assembles a job. params must already be normalized.
func NewJob(p Params, cfg config.ScraperConfig, b Browser, t *task.Task, store storage.Store,
	pl *pipeline.Pipeline, m *observability.Metrics, logger *slog.Logger) *Job {
	logger = logger.With("component", "job", "task_id", t.ID())
	return &Job{
		params:    p,
		cfg:       cfg,
		browser:   b,
		task:      t,
		store:     store,
		pipeline:  pl,
		metrics:   m,
		collector: NewCollector(b, cfg, p, t, m, logger),
		links:     NewLinkSet(p.Many),
		logger:    logger,
	}
}

// Run executes the job and leaves the task in a terminal status.
func (j *Job) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		j.finish(ctx, err)
	}()

	j.task.Log(fmt.Sprintf("Starting main search: %s", j.params.Query))
	main := j.collector.CollectLinks(ctx, j.params.Query, j.params.Many)
	j.links.AddAll(main)
	j.task.Log(fmt.Sprintf("Links found in main search: %d", len(main)))
	if err := ctx.Err(); err != nil {
		return err
	}

	if j.params.DeepSearch && j.links.Len() < j.params.Many {
		if err := j.deepSearch(ctx); err != nil {
			return err
		}
	}

	targets := j.links.First(j.params.Many)
	if len(targets) == 0 {
		j.task.Log("No organizations found")
		j.empty = true
		return nil
	}

	j.task.Log(fmt.Sprintf("Parsing details of %d organizations...", len(targets)))
	return j.parseAll(ctx, targets)
}

func (j *Job) deepSearch(ctx context.Context) error {
	hoods := regions.Lookup(j.params.Query)
	if len(hoods) == 0 {
		j.task.Log("No neighbourhoods known for this city, continuing with the main list.")
		return nil
	}

	j.task.Log(fmt.Sprintf("Deep search enabled. Neighbourhoods for %q: %d", j.params.Query, len(hoods)))
	for _, hood := range hoods {
		if j.links.Len() >= j.params.Many {
			break
		}
		j.task.Log(fmt.Sprintf("Searching neighbourhood: %s", hood))
		found := j.collector.CollectLinks(ctx, j.params.Query+" "+hood, j.params.Many-j.links.Len())
		j.links.AddAll(found)
		j.task.Log(fmt.Sprintf("Total links collected: %d", j.links.Len()))
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) parseAll(ctx context.Context, targets []string) error {
	g := new(errgroup.Group)
	g.SetLimit(j.params.Workers)

	for _, u := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			j.metrics.ActiveWorkers.Add(1)
			defer j.metrics.ActiveWorkers.Add(-1)
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic recording %s: %v", u, r)
				}
			}()

			place, err := j.parseDetail(ctx, u)
			if err != nil {
				j.metrics.PlacesFailed.Add(1)
				j.logger.Debug("detail parse failed", "url", u, "error", err)
				return nil
			}
			j.metrics.PlacesParsed.Add(1)
			j.record(ctx, place)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (j *Job) parseDetail(ctx context.Context, pageURL string) (place *types.Place, err error) {
	defer func() {
		if r := recover(); r != nil {
			place, err = nil, fmt.Errorf("panic parsing %s: %v", pageURL, r)
		}
	}()

	sess, err := j.browser.NewSession(ctx)
	if err != nil {
		return nil, &types.FetchError{URL: pageURL, Op: "session", Err: err}
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, pageURL); err != nil {
		return nil, err
	}
	if err := sleepCtx(ctx, j.cfg.DetailSettle); err != nil {
		return nil, err
	}
	page, err := sess.HTML(ctx)
	if err != nil {
		return nil, err
	}

	place, err = parser.ParsePlace(page, pageURL)
	if err != nil {
		return nil, err
	}
	place, err = j.pipeline.Process(place)
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, errDropped
	}
	return place, nil
}

// record appends a place to the task and persists it. Both happen under one
// lock so stored order matches result ids.
func (j *Job) record(ctx context.Context, place *types.Place) {
	j.saveMu.Lock()
	defer j.saveMu.Unlock()

	j.task.AddResult(place)
	if err := j.store.Save(context.WithoutCancel(ctx), j.task.ID(), place); err != nil {
		if !errors.Is(err, types.ErrNoDatabase) {
			j.metrics.StoreErrors.Add(1)
			j.logger.Error("store save failed", "store", j.store.Name(), "url", place.URL, "error", err)
		}
	} else {
		j.metrics.PlacesStored.Add(1)
	}

	j.task.Log(fmt.Sprintf("Parsed:\n%s\nAddress: %s\nPhone: %s\nWebsite: %s\n---",
		place.Name, place.Address, place.Phone, place.Website))
}

func (j *Job) finish(ctx context.Context, err error) {
	elapsed := j.task.MarkEnded()

	switch {
	case err == nil:
		if !j.empty {
			j.task.Log(fmt.Sprintf("Scraping completed successfully. Elapsed: %s", FormatDuration(elapsed)))
		}
		j.task.Finish(task.StatusCompleted)
		j.metrics.TasksCompleted.Add(1)
	case ctx.Err() != nil:
		j.task.Log(fmt.Sprintf("Scraping cancelled after %s with %d results", FormatDuration(elapsed), len(j.task.Results())))
		j.task.Finish(task.StatusCancelled)
		j.metrics.TasksCancelled.Add(1)
	default:
		j.task.Log(fmt.Sprintf("Critical error: %v", err))
		j.task.Finish(task.StatusError)
		j.metrics.TasksFailed.Add(1)
	}
	j.logger.Info("job finished", "status", j.task.Status(), "results", len(j.task.Results()), "elapsed", elapsed)
}

