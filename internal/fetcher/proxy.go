package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/MapGoat/internal/config"
)

// ProxyManager rotates the proxies handed to each launched browser and
// tracks which ones are healthy.
type ProxyManager struct {
	proxies  []*proxyEntry
	rotation string
	index    atomic.Int64
	mu       sync.RWMutex
	logger   *slog.Logger
}

type proxyEntry struct {
	URL     *url.URL
	Healthy bool
	LastErr error
	LastUse time.Time
}

// NewProxyManager creates a ProxyManager from configuration. Invalid URLs
// are logged and skipped.
func NewProxyManager(cfg config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*proxyEntry, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		logger:   logger.With("component", "proxy_manager"),
	}

	for _, rawURL := range cfg.URLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			pm.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, &proxyEntry{URL: u, Healthy: true})
	}

	pm.logger.Debug("proxy manager initialized", "count", len(pm.proxies), "rotation", cfg.Rotation)
	return pm
}

// Next returns the next healthy proxy, or nil when none is available.
func (pm *ProxyManager) Next() *url.URL {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	healthy := pm.healthyProxies()
	if len(healthy) == 0 {
		return nil
	}

	var entry *proxyEntry
	switch pm.rotation {
	case "random":
		entry = healthy[rand.Intn(len(healthy))]
	default: // round_robin
		idx := (pm.index.Add(1) - 1) % int64(len(healthy))
		entry = healthy[idx]
	}
	entry.LastUse = time.Now()
	return entry.URL
}

// MarkFailed marks a proxy as unhealthy.
func (pm *ProxyManager) MarkFailed(proxyURL *url.URL, err error) {
	pm.setHealth(proxyURL, false, err)
	pm.logger.Warn("proxy marked unhealthy", "proxy", proxyURL.Host, "error", err)
}

// MarkHealthy marks a proxy as healthy.
func (pm *ProxyManager) MarkHealthy(proxyURL *url.URL) {
	pm.setHealth(proxyURL, true, nil)
}

func (pm *ProxyManager) setHealth(proxyURL *url.URL, healthy bool, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, p := range pm.proxies {
		if p.URL.String() == proxyURL.String() {
			p.Healthy = healthy
			p.LastErr = err
			return
		}
	}
}

// HealthCheck requests target through every proxy and updates its status.
func (pm *ProxyManager) HealthCheck(ctx context.Context, target string) {
	pm.mu.RLock()
	urls := make([]*url.URL, len(pm.proxies))
	for i, p := range pm.proxies {
		urls[i] = p.URL
	}
	pm.mu.RUnlock()

	for _, u := range urls {
		client := &http.Client{
			Timeout:   10 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyURL(u)},
		}
		err := checkProxy(ctx, client, target)
		if err != nil {
			pm.MarkFailed(u, err)
		} else {
			pm.MarkHealthy(u)
		}
	}
}

func checkProxy(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// Count returns the total number of proxies.
func (pm *ProxyManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.proxies)
}

// HealthyCount returns the number of healthy proxies.
func (pm *ProxyManager) HealthyCount() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.healthyProxies())
}

func (pm *ProxyManager) healthyProxies() []*proxyEntry {
	healthy := make([]*proxyEntry, 0, len(pm.proxies))
	for _, p := range pm.proxies {
		if p.Healthy {
			healthy = append(healthy, p)
		}
	}
	return healthy
}
