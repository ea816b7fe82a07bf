package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// Session is a single browser tab.
type Session struct {
	page    *rod.Page
	timeout time.Duration
	feed    *rod.Element
	url     string
	logger  *slog.Logger
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.timeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return &types.FetchError{URL: url, Op: "navigate", Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		return &types.FetchError{URL: url, Op: "wait load", Err: err}
	}
	s.url = url
	s.feed = nil
	return nil
}

// WaitForXPath waits up to timeout for an element matching xpath.
func (s *Session) WaitForXPath(ctx context.Context, xpath string, timeout time.Duration) error {
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	if _, err := p.ElementX(xpath); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return types.ErrElementNotFound
		}
		return &types.FetchError{URL: s.url, Op: "wait xpath", Err: err}
	}
	return nil
}

// ScrollFeed scrolls the results panel to its bottom.
func (s *Session) ScrollFeed(ctx context.Context, xpaths []string) error {
	if s.feed == nil {
		feed, err := s.locateFeed(ctx, xpaths)
		if err != nil {
			return err
		}
		s.feed = feed
	}

	el := s.feed.Context(ctx).Timeout(s.timeout)
	defer el.CancelTimeout()
	if _, err := el.Eval(`() => { this.scrollTop = this.scrollHeight }`); err != nil {
		return &types.FetchError{URL: s.url, Op: "scroll", Err: err}
	}
	return nil
}

func (s *Session) locateFeed(ctx context.Context, xpaths []string) (*rod.Element, error) {
	p := s.page.Context(ctx).Timeout(s.timeout)
	defer p.CancelTimeout()

	for _, xp := range xpaths {
		has, el, err := p.HasX(xp)
		if err != nil {
			return nil, &types.FetchError{URL: s.url, Op: "locate feed", Err: err}
		}
		if has {
			s.logger.Debug("feed located", "xpath", xp)
			return el, nil
		}
	}

	body, err := p.Element("body")
	if err != nil {
		return nil, &types.FetchError{URL: s.url, Op: "locate body", Err: err}
	}
	s.logger.Debug("feed not found, scrolling body", "url", s.url)
	return body, nil
}

// HTML returns the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	p := s.page.Context(ctx).Timeout(s.timeout)
	defer p.CancelTimeout()

	html, err := p.HTML()
	if err != nil {
		return "", &types.FetchError{URL: s.url, Op: "html", Err: err}
	}
	return html, nil
}

// Close closes the tab.
func (s *Session) Close() error {
	return s.page.Close()
}
