package config

import (
	"fmt"
	"net/url"
	"regexp"
)

var windowSizeRe = regexp.MustCompile(`^\d+,\d+$`)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateSearchURL(cfg.Scraper.SearchBaseURL); err != nil {
		return fmt.Errorf("scraper.search_base_url: %w", err)
	}
	if cfg.Scraper.Lang == "" {
		return fmt.Errorf("scraper.lang must not be empty")
	}
	if cfg.Scraper.DefaultMany < 1 {
		return fmt.Errorf("scraper.default_many must be >= 1, got %d", cfg.Scraper.DefaultMany)
	}
	if cfg.Scraper.MaxWorkers < 1 {
		return fmt.Errorf("scraper.max_workers must be >= 1, got %d", cfg.Scraper.MaxWorkers)
	}
	if cfg.Scraper.MaxWorkers > 64 {
		return fmt.Errorf("scraper.max_workers must be <= 64, got %d", cfg.Scraper.MaxWorkers)
	}
	if cfg.Scraper.StallLimit < 1 {
		return fmt.Errorf("scraper.stall_limit must be >= 1, got %d", cfg.Scraper.StallLimit)
	}
	if cfg.Scraper.LinkWaitTimeout <= 0 {
		return fmt.Errorf("scraper.link_wait_timeout must be > 0")
	}
	if cfg.Scraper.PageLoadTimeout <= 0 {
		return fmt.Errorf("scraper.page_load_timeout must be > 0")
	}
	if cfg.Scraper.ScrollPause < 0 || cfg.Scraper.DetailSettle < 0 {
		return fmt.Errorf("scraper.scroll_pause and scraper.detail_settle must be >= 0")
	}
	if cfg.Scraper.MaxLogLines < 1 {
		return fmt.Errorf("scraper.max_log_lines must be >= 1, got %d", cfg.Scraper.MaxLogLines)
	}

	if cfg.Browser.WindowSize != "" && !windowSizeRe.MatchString(cfg.Browser.WindowSize) {
		return fmt.Errorf("browser.window_size must look like 1200,800, got %q", cfg.Browser.WindowSize)
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	switch cfg.Storage.Driver {
	case "auto", "sqlite", "none":
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.driver postgres requires DATABASE_URL")
		}
	case "mongodb":
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.driver mongodb requires storage.mongo_uri")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported (valid: auto, sqlite, postgres, mongodb, none)", cfg.Storage.Driver)
	}
	switch cfg.Storage.Mirror {
	case "", "sqlite":
	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.mirror postgres requires DATABASE_URL")
		}
	case "mongodb":
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mirror mongodb requires storage.mongo_uri")
		}
	default:
		return fmt.Errorf("storage.mirror %q is not supported (valid: sqlite, postgres, mongodb)", cfg.Storage.Mirror)
	}
	if cfg.Storage.HistoryLimit < 1 {
		return fmt.Errorf("storage.history_limit must be >= 1, got %d", cfg.Storage.HistoryLimit)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateSearchURL checks that the search base URL is an absolute http(s) URL.
func ValidateSearchURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
