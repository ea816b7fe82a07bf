package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller on top of the result.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("MAPGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional hosting variable wins over the prefixed one.
	if err := v.BindEnv("storage.database_url", "DATABASE_URL", "MAPGOAT_STORAGE_DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind DATABASE_URL: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, "."+AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Dump renders the configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// setDefaults registers default values in viper so env-only keys unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scraper.search_base_url", cfg.Scraper.SearchBaseURL)
	v.SetDefault("scraper.lang", cfg.Scraper.Lang)
	v.SetDefault("scraper.region", cfg.Scraper.Region)
	v.SetDefault("scraper.default_many", cfg.Scraper.DefaultMany)
	v.SetDefault("scraper.deep_search", cfg.Scraper.DeepSearch)
	v.SetDefault("scraper.max_workers", cfg.Scraper.MaxWorkers)
	v.SetDefault("scraper.link_wait_timeout", cfg.Scraper.LinkWaitTimeout)
	v.SetDefault("scraper.scroll_pause", cfg.Scraper.ScrollPause)
	v.SetDefault("scraper.stall_limit", cfg.Scraper.StallLimit)
	v.SetDefault("scraper.detail_settle", cfg.Scraper.DetailSettle)
	v.SetDefault("scraper.page_load_timeout", cfg.Scraper.PageLoadTimeout)
	v.SetDefault("scraper.max_log_lines", cfg.Scraper.MaxLogLines)
	v.SetDefault("scraper.require_name", cfg.Scraper.RequireName)
	v.SetDefault("scraper.dedup_places", cfg.Scraper.DedupPlaces)

	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.disable_images", cfg.Browser.DisableImages)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.platform", cfg.Browser.Platform)
	v.SetDefault("browser.vendor", cfg.Browser.Vendor)
	v.SetDefault("browser.webgl_vendor", cfg.Browser.WebGLVendor)
	v.SetDefault("browser.webgl_renderer", cfg.Browser.WebGLRenderer)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)

	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.mirror", cfg.Storage.Mirror)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.history_limit", cfg.Storage.HistoryLimit)

	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.compression", cfg.Server.Compression)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
