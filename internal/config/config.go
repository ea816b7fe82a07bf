package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Version is set at build time via ldflags.
var Version = "dev"

// AppName is used for config file names, env prefixes and data directories.
const AppName = "mapgoat"

// Config is the root configuration for MapGoat.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Proxy   ProxyConfig   `mapstructure:"proxy"   yaml:"proxy"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScraperConfig controls link discovery and detail parsing.
type ScraperConfig struct {
	SearchBaseURL   string        `mapstructure:"search_base_url"   yaml:"search_base_url"`
	Lang            string        `mapstructure:"lang"              yaml:"lang"`
	Region          string        `mapstructure:"region"            yaml:"region"`
	DefaultMany     int           `mapstructure:"default_many"      yaml:"default_many"`
	DeepSearch      bool          `mapstructure:"deep_search"       yaml:"deep_search"`
	MaxWorkers      int           `mapstructure:"max_workers"       yaml:"max_workers"`
	LinkWaitTimeout time.Duration `mapstructure:"link_wait_timeout" yaml:"link_wait_timeout"`
	ScrollPause     time.Duration `mapstructure:"scroll_pause"      yaml:"scroll_pause"`
	StallLimit      int           `mapstructure:"stall_limit"       yaml:"stall_limit"`
	DetailSettle    time.Duration `mapstructure:"detail_settle"     yaml:"detail_settle"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	MaxLogLines     int           `mapstructure:"max_log_lines"     yaml:"max_log_lines"`
	RequireName     bool          `mapstructure:"require_name"      yaml:"require_name"`
	DedupPlaces     bool          `mapstructure:"dedup_places"      yaml:"dedup_places"`
}

// BrowserConfig controls the headless Chromium instance.
type BrowserConfig struct {
	Bin           string `mapstructure:"bin"            yaml:"bin"`
	Headless      bool   `mapstructure:"headless"       yaml:"headless"`
	UserAgent     string `mapstructure:"user_agent"     yaml:"user_agent"`
	WindowSize    string `mapstructure:"window_size"    yaml:"window_size"`
	DisableImages bool   `mapstructure:"disable_images" yaml:"disable_images"`
	Stealth       bool   `mapstructure:"stealth"        yaml:"stealth"`
	Platform      string `mapstructure:"platform"       yaml:"platform"`
	Vendor        string `mapstructure:"vendor"         yaml:"vendor"`
	WebGLVendor   string `mapstructure:"webgl_vendor"   yaml:"webgl_vendor"`
	WebGLRenderer string `mapstructure:"webgl_renderer" yaml:"webgl_renderer"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// StorageConfig controls where results are persisted.
type StorageConfig struct {
	Driver          string `mapstructure:"driver"           yaml:"driver"` // auto, sqlite, postgres, mongodb, none
	Mirror          string `mapstructure:"mirror"           yaml:"mirror"` // optional second backend that receives every save
	DatabaseURL     string `mapstructure:"database_url"     yaml:"database_url"`
	SQLitePath      string `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	HistoryLimit    int    `mapstructure:"history_limit"    yaml:"history_limit"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Host            string        `mapstructure:"host"             yaml:"host"`
	Port            int           `mapstructure:"port"             yaml:"port"`
	Compression     bool          `mapstructure:"compression"      yaml:"compression"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the standalone metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			SearchBaseURL:   "https://www.google.com/maps/search/",
			Lang:            "ru",
			Region:          "RU",
			DefaultMany:     10,
			DeepSearch:      true,
			MaxWorkers:      5,
			LinkWaitTimeout: 10 * time.Second,
			ScrollPause:     2 * time.Second,
			StallLimit:      5,
			DetailSettle:    2 * time.Second,
			PageLoadTimeout: 30 * time.Second,
			MaxLogLines:     500,
		},
		Browser: BrowserConfig{
			Bin:           detectBrowserBin(),
			Headless:      true,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			WindowSize:    "1200,800",
			DisableImages: true,
			Stealth:       true,
			Platform:      "Win32",
			Vendor:        "Google Inc.",
			WebGLVendor:   "Intel Inc.",
			WebGLRenderer: "Intel Iris OpenGL Engine",
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Rotation: "round_robin",
		},
		Storage: StorageConfig{
			Driver:          "auto",
			SQLitePath:      DefaultSQLitePath(),
			MongoDatabase:   AppName,
			MongoCollection: "results",
			HistoryLimit:    1000,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            10000,
			Compression:     true,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// DefaultSQLitePath returns the results database location under the XDG data home.
// On Linux: ~/.local/share/mapgoat/results.db
func DefaultSQLitePath() string {
	return filepath.Join(xdg.DataHome, AppName, "results.db")
}

var browserCandidates = []string{"/usr/bin/chromium", "/usr/bin/chromium-browser"}

// detectBrowserBin returns the first system Chromium found, or "" to let rod
// download its own build.
func detectBrowserBin() string {
	for _, p := range browserCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
