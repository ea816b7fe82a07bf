package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// PlaceLinkXPath matches anchors that lead to a place detail page.
const PlaceLinkXPath = `//a[contains(@href, "/maps/place/")]`

// FeedXPaths locate the scrollable results panel, most specific first.
var FeedXPaths = []string{
	`//div[@role="feed"]`,
	`//div[contains(@aria-label, "Results for")]`,
}

// PlaceLinks returns the unique place URLs found in a search results page,
// resolved against baseURL, in document order.
func PlaceLinks(page, baseURL string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, Err: err}
	}

	nodes, err := htmlquery.QueryAll(doc, PlaceLinkXPath)
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, Selector: PlaceLinkXPath, Err: err}
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, Err: fmt.Errorf("invalid base URL: %w", err)}
	}

	seen := make(map[string]bool, len(nodes))
	links := make([]string, 0, len(nodes))
	for _, node := range nodes {
		href := strings.TrimSpace(htmlquery.SelectAttr(node, "href"))
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		resolved.Fragment = ""

		abs := resolved.String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	}
	return links, nil
}
