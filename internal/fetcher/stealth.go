package fetcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IshaanNene/MapGoat/internal/config"
)

// WebGL parameter ids for UNMASKED_VENDOR_WEBGL and UNMASKED_RENDERER_WEBGL.
const (
	glUnmaskedVendor   = 37445
	glUnmaskedRenderer = 37446
)

// StealthConfig is the fingerprint pinned on every page, on top of the
// patches applied by go-rod/stealth.
type StealthConfig struct {
	Platform      string
	Languages     []string
	Vendor        string
	WebGLVendor   string
	WebGLRenderer string
}

// NewStealthConfig builds the fingerprint for a job searching in lang/region.
func NewStealthConfig(cfg config.BrowserConfig, lang, region string) *StealthConfig {
	return &StealthConfig{
		Platform:      cfg.Platform,
		Languages:     Languages(lang, region),
		Vendor:        cfg.Vendor,
		WebGLVendor:   cfg.WebGLVendor,
		WebGLRenderer: cfg.WebGLRenderer,
	}
}

// Languages returns navigator.languages for lang/region: the regional tag,
// the bare language, then English.
func Languages(lang, region string) []string {
	var langs []string
	seen := make(map[string]bool)
	add := func(l string) {
		if l != "" && !seen[l] {
			seen[l] = true
			langs = append(langs, l)
		}
	}
	if lang != "" && region != "" {
		add(lang + "-" + region)
	}
	add(lang)
	add("en-US")
	add("en")
	return langs
}

// AcceptLanguage renders the languages as an Accept-Language header value.
func (sc *StealthConfig) AcceptLanguage() string {
	parts := make([]string, len(sc.Languages))
	for i, l := range sc.Languages {
		if i == 0 {
			parts[i] = l
			continue
		}
		q := 1.0 - float64(i)*0.1
		if q < 0.1 {
			q = 0.1
		}
		parts[i] = fmt.Sprintf("%s;q=%.1f", l, q)
	}
	return strings.Join(parts, ",")
}

// StealthJS returns JavaScript evaluated before any page script runs.
func (sc *StealthConfig) StealthJS() string {
	quote := func(v any) string {
		b, _ := json.Marshal(v)
		return string(b)
	}
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'platform', { get: () => %s });
Object.defineProperty(navigator, 'languages', { get: () => %s });
Object.defineProperty(navigator, 'language', { get: () => %s });
Object.defineProperty(navigator, 'vendor', { get: () => %s });
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

for (const ctx of [window.WebGLRenderingContext, window.WebGL2RenderingContext]) {
	if (!ctx) continue;
	const getParameter = ctx.prototype.getParameter;
	ctx.prototype.getParameter = function(param) {
		if (param === %d) return %s;
		if (param === %d) return %s;
		return getParameter.call(this, param);
	};
}
`,
		quote(sc.Platform), quote(sc.Languages), quote(sc.Languages[0]), quote(sc.Vendor),
		glUnmaskedVendor, quote(sc.WebGLVendor),
		glUnmaskedRenderer, quote(sc.WebGLRenderer),
	)
}
