package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/types"
)

// Browser is a running browser process that hands out page sessions.
type Browser interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

// Session is a single browser page.
type Session interface {
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string) error

	// WaitForXPath waits until an element matching xpath exists. It returns
	// types.ErrElementNotFound when timeout elapses first.
	WaitForXPath(ctx context.Context, xpath string, timeout time.Duration) error

	// ScrollFeed scrolls the first element matching one of xpaths (or the
	// body) to its bottom. The element is located once per session.
	ScrollFeed(ctx context.Context, xpaths []string) error

	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)

	Close() error
}

// LaunchFunc starts a browser configured for one job.
type LaunchFunc func(ctx context.Context, p Params) (Browser, error)

// Params are the inputs of one scraping job.
type Params struct {
	Query      string `json:"query"`
	Many       int    `json:"many"`
	Lang       string `json:"lang"`
	Region     string `json:"region"`
	DeepSearch bool   `json:"deep_search"`
	Workers    int    `json:"workers,omitempty"`
}

// Normalize trims the query and fills zero values from cfg.
func (p Params) Normalize(cfg config.ScraperConfig) (Params, error) {
	p.Query = strings.TrimSpace(p.Query)
	if p.Query == "" {
		return p, types.ErrInvalidQuery
	}
	if p.Many <= 0 {
		p.Many = cfg.DefaultMany
	}
	if p.Lang == "" {
		p.Lang = cfg.Lang
	}
	if p.Region == "" {
		p.Region = cfg.Region
	}
	if p.Workers <= 0 {
		p.Workers = cfg.MaxWorkers
	}
	return p, nil
}

// FormatDuration renders d as "<m>m <s>s", or "<s>s" under a minute.
func FormatDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
