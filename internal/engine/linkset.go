package engine

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// LinkSet is an insertion-ordered set of place URLs, deduplicated by their
// canonical form.
type LinkSet struct {
	mu    sync.RWMutex
	seen  map[string]struct{}
	order []string
}

// NewLinkSet creates an empty LinkSet with the given estimated capacity.
func NewLinkSet(estimatedCapacity int) *LinkSet {
	return &LinkSet{
		seen:  make(map[string]struct{}, estimatedCapacity),
		order: make([]string, 0, estimatedCapacity),
	}
}

// Add inserts rawURL and reports whether it was new.
func (s *LinkSet) Add(rawURL string) bool {
	key := CanonicalizeURL(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, rawURL)
	return true
}

// AddAll inserts every URL and returns how many were new.
func (s *LinkSet) AddAll(urls []string) int {
	added := 0
	for _, u := range urls {
		if s.Add(u) {
			added++
		}
	}
	return added
}

// Len returns the number of unique URLs.
func (s *LinkSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Slice returns the URLs in insertion order.
func (s *LinkSet) Slice() []string {
	return s.First(-1)
}

// First returns at most n URLs in insertion order. A negative n returns all.
func (s *LinkSet) First(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 0 || n > len(s.order) {
		n = len(s.order)
	}
	return append([]string(nil), s.order[:n]...)
}

// CanonicalizeURL normalizes a URL for deduplication:
// - lowercases scheme and host
// - removes fragment
// - sorts query parameters
// - removes trailing slash (except root)
// - removes default ports (80 for http, 443 for https)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
