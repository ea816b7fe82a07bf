package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/observability"
	"github.com/IshaanNene/MapGoat/internal/parser"
	"github.com/IshaanNene/MapGoat/internal/task"
)

// Collector gathers place links from search result pages.
type Collector struct {
	browser Browser
	cfg     config.ScraperConfig
	lang    string
	region  string
	task    *task.Task
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCollector creates a Collector that reports warnings to t.
func NewCollector(b Browser, cfg config.ScraperConfig, p Params, t *task.Task, m *observability.Metrics, logger *slog.Logger) *Collector {
	return &Collector{
		browser: b,
		cfg:     cfg,
		lang:    p.Lang,
		region:  p.Region,
		task:    t,
		metrics: m,
		logger:  logger.With("component", "collector"),
	}
}

// SearchURL builds the search page URL for query.
func (c *Collector) SearchURL(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = url.PathEscape(w)
	}
	return fmt.Sprintf("%s%s?hl=%s&gl=%s",
		c.cfg.SearchBaseURL, strings.Join(words, "+"),
		url.QueryEscape(c.lang), url.QueryEscape(c.region))
}

// CollectLinks scrolls the results feed for query until limit links are
// found or the feed stops growing. Errors after the first results appear are
// logged to the task and the links gathered so far are returned.
func (c *Collector) CollectLinks(ctx context.Context, query string, limit int) []string {
	searchURL := c.SearchURL(query)
	logger := c.logger.With("query", query, "limit", limit)
	c.metrics.SearchesRun.Add(1)

	sess, err := c.browser.NewSession(ctx)
	if err != nil {
		c.task.Log(fmt.Sprintf("Browser error: %v", err))
		return nil
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, searchURL); err != nil {
		c.task.Log(fmt.Sprintf("Search error for %q: %v", query, err))
		return nil
	}
	if err := sess.WaitForXPath(ctx, parser.PlaceLinkXPath, c.cfg.LinkWaitTimeout); err != nil {
		logger.Debug("no place links appeared", "error", err)
		return nil
	}

	links := NewLinkSet(limit)
	lastLen, stalls := 0, 0
	for links.Len() < limit && stalls < c.cfg.StallLimit {
		found, err := c.scrollOnce(ctx, sess, searchURL)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.task.Log(fmt.Sprintf("Search error for %q: %v", query, err))
			}
			break
		}
		links.AddAll(found)

		if links.Len() == lastLen {
			stalls++
		} else {
			stalls = 0
			lastLen = links.Len()
		}
		logger.Debug("feed scrolled", "links", links.Len(), "stalls", stalls)
	}

	c.metrics.LinksDiscovered.Add(int64(links.Len()))
	return links.Slice()
}

func (c *Collector) scrollOnce(ctx context.Context, sess Session, searchURL string) ([]string, error) {
	if err := sess.ScrollFeed(ctx, parser.FeedXPaths); err != nil {
		return nil, err
	}
	if err := sleepCtx(ctx, c.cfg.ScrollPause); err != nil {
		return nil, err
	}
	page, err := sess.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return parser.PlaceLinks(page, searchURL)
}
