package pipeline

import (
	"html"
	"strings"
	"sync"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// textFields returns pointers to the free-text fields of a place.
func textFields(p *types.Place) []*string {
	return []*string{&p.Name, &p.Address, &p.Phone, &p.Rating, &p.Website, &p.URL}
}

// TrimMiddleware trims surrounding whitespace from every field.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(place *types.Place) (*types.Place, error) {
	for _, f := range textFields(place) {
		*f = strings.TrimSpace(*f)
	}
	return place, nil
}

// CollapseWhitespaceMiddleware decodes HTML entities and collapses runs of
// whitespace in the descriptive fields. URLs are left alone.
type CollapseWhitespaceMiddleware struct{}

func (m *CollapseWhitespaceMiddleware) Name() string { return "collapse_whitespace" }

func (m *CollapseWhitespaceMiddleware) Process(place *types.Place) (*types.Place, error) {
	for _, f := range []*string{&place.Name, &place.Address, &place.Phone, &place.Rating} {
		if *f == "" {
			continue
		}
		*f = strings.Join(strings.Fields(html.UnescapeString(*f)), " ")
	}
	return place, nil
}

// RatingNormalizeMiddleware turns a decimal comma into a dot.
type RatingNormalizeMiddleware struct{}

func (m *RatingNormalizeMiddleware) Name() string { return "rating_normalize" }

func (m *RatingNormalizeMiddleware) Process(place *types.Place) (*types.Place, error) {
	if place.Rating != types.NotAvailable {
		place.Rating = strings.ReplaceAll(place.Rating, ",", ".")
	}
	return place, nil
}

// DefaultsMiddleware fills empty fields with N/A.
type DefaultsMiddleware struct{}

func (m *DefaultsMiddleware) Name() string { return "defaults" }

func (m *DefaultsMiddleware) Process(place *types.Place) (*types.Place, error) {
	for _, f := range textFields(place) {
		if *f == "" {
			*f = types.NotAvailable
		}
	}
	return place, nil
}

// RequiredNameMiddleware drops places whose name could not be read.
type RequiredNameMiddleware struct{}

func (m *RequiredNameMiddleware) Name() string { return "required_name" }

func (m *RequiredNameMiddleware) Process(place *types.Place) (*types.Place, error) {
	if place.Name == "" || place.Name == types.NotAvailable {
		return nil, nil
	}
	return place, nil
}

// DedupMiddleware drops places whose URL was already seen.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(place *types.Place) (*types.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[place.URL]; exists {
		return nil, nil
	}
	m.seen[place.URL] = struct{}{}
	return place, nil
}
