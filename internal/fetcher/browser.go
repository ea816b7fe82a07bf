// Package fetcher drives a headless Chromium through rod for link discovery
// and place pages.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/engine"
	"github.com/IshaanNene/MapGoat/internal/types"
)

// Browser is one Chromium process serving the sessions of a single job.
type Browser struct {
	browser     *rod.Browser
	launcher    *launcher.Launcher
	cfg         config.BrowserConfig
	stealthCfg  *StealthConfig
	pageTimeout time.Duration
	proxy       string
	logger      *slog.Logger
	closeOnce   sync.Once
}

// Launcher returns an engine.LaunchFunc that starts a Browser per job.
func Launcher(cfg *config.Config, proxies *ProxyManager, logger *slog.Logger) engine.LaunchFunc {
	return func(ctx context.Context, p engine.Params) (engine.Browser, error) {
		b, err := Launch(ctx, cfg, p.Lang, p.Region, proxies, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Launch starts Chromium with the configured flags and connects to it.
// proxies may be nil.
func Launch(ctx context.Context, cfg *config.Config, lang, region string, proxies *ProxyManager, logger *slog.Logger) (*Browser, error) {
	b := &Browser{
		cfg:         cfg.Browser,
		stealthCfg:  NewStealthConfig(cfg.Browser, lang, region),
		pageTimeout: cfg.Scraper.PageLoadTimeout,
		logger:      logger.With("component", "browser"),
	}
	var proxyURL *url.URL
	if proxies != nil && cfg.Proxy.Enabled {
		if u := proxies.Next(); u != nil {
			proxyURL = u
			b.proxy = chromeProxy(u)
			if u.User != nil {
				b.logger.Warn("chromium ignores proxy credentials, use an unauthenticated or IP-allowlisted proxy",
					"proxy", u.Redacted())
			}
		}
	}

	b.launcher = b.newLauncher().Context(ctx)
	controlURL, err := b.launcher.Launch()
	if err != nil {
		return nil, b.launchFailed(proxies, proxyURL, "launch", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		b.launcher.Kill()
		return nil, b.launchFailed(proxies, proxyURL, "connect", err)
	}
	b.browser = browser

	b.logger.Debug("browser ready",
		"bin", cfg.Browser.Bin,
		"headless", cfg.Browser.Headless,
		"stealth", cfg.Browser.Stealth,
		"proxy", b.proxy != "",
	)
	return b, nil
}

// launchFailed wraps a startup error and takes the job's proxy out of
// rotation.
func (b *Browser) launchFailed(proxies *ProxyManager, proxyURL *url.URL, op string, err error) error {
	if proxies != nil && proxyURL != nil {
		proxies.MarkFailed(proxyURL, err)
	}
	return fmt.Errorf("%w: %s: %v", types.ErrBrowserUnavailable, op, err)
}

// chromeProxy formats a proxy for --proxy-server. Chromium reads only the
// scheme and host there, so userinfo is dropped.
func chromeProxy(u *url.URL) string {
	c := *u
	c.User = nil
	return c.String()
}

// newLauncher builds the Chromium command line.
func (b *Browser) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(b.cfg.Headless).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", b.cfg.WindowSize).
		Set("user-agent", b.cfg.UserAgent).
		Set("lang", b.stealthCfg.Languages[0])

	if b.cfg.Bin != "" {
		l = l.Bin(b.cfg.Bin)
	}
	if b.cfg.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}
	if b.proxy != "" {
		l = l.Proxy(b.proxy)
	}
	return l
}

// NewSession opens a page with the job's fingerprint applied.
func (b *Browser) NewSession(ctx context.Context) (engine.Session, error) {
	var (
		page *rod.Page
		err  error
	)
	if b.cfg.Stealth {
		page, err = stealth.Page(b.browser.Context(ctx))
	} else {
		page, err = b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, &types.FetchError{Op: "new page", Err: err}
	}

	if b.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(b.stealthCfg.StealthJS()); err != nil {
			_ = page.Close()
			return nil, &types.FetchError{Op: "stealth script", Err: err}
		}
	}

	err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      b.cfg.UserAgent,
		AcceptLanguage: b.stealthCfg.AcceptLanguage(),
		Platform:       b.stealthCfg.Platform,
	})
	if err != nil {
		b.logger.Warn("failed to set user agent", "error", err)
	}

	return &Session{
		page:    page,
		timeout: b.pageTimeout,
		logger:  b.logger,
	}, nil
}

// Close shuts the browser down and removes its profile directory.
func (b *Browser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.browser != nil {
			err = b.browser.Close()
		}
		if b.launcher != nil {
			b.launcher.Kill()
			b.launcher.Cleanup()
		}
	})
	return err
}
