package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// Selectors for the place detail panel. They track the site's current markup.
const (
	ratingLabelSelector = `span[aria-label*="star"], span[aria-label*="звезд"], span[aria-label*="оцен"]`
	ratingTextSelector  = `.MW4etd, .ce967p`
	contactItemSelector = `button[data-item-id], a[data-item-id]`
	websiteSelector     = `a[aria-label*="website"], a[aria-label*="Сайт"]`
)

var (
	ratingRe  = regexp.MustCompile(`(\d[.,]\d)`)
	telRe     = regexp.MustCompile(`tel:(\+\d+)`)
	leadingRe = regexp.MustCompile(`^[^\p{L}\p{N}_\s()+]+`)
)

// ParsePlace extracts a contact record from a rendered place page.
// Fields the page does not expose stay N/A.
func ParsePlace(page, pageURL string) (*types.Place, error) {
	if strings.TrimSpace(page) == "" {
		return nil, &types.ParseError{URL: pageURL, Err: types.ErrEmptyPage}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}

	p := types.NewPlace(pageURL)

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		p.Name = strippedText(h1)
	}

	p.Rating = extractRating(doc)

	doc.Find(contactItemSelector).Each(func(_ int, sel *goquery.Selection) {
		itemID, _ := sel.Attr("data-item-id")
		text := CleanLabel(strippedText(sel))

		switch {
		case strings.Contains(itemID, "address"):
			p.Address = text
		case strings.Contains(itemID, "phone"):
			if m := telRe.FindStringSubmatch(itemID); m != nil {
				p.Phone = m[1]
			} else {
				p.Phone = text
			}
		case strings.Contains(itemID, "authority"):
			if href, ok := sel.Attr("href"); ok {
				p.Website = href
			} else {
				p.Website = text
			}
		}
	})

	if p.Website == types.NotAvailable {
		if href, ok := doc.Find(websiteSelector).First().Attr("href"); ok {
			p.Website = href
		}
	}

	return p, nil
}

func extractRating(doc *goquery.Document) string {
	rating := types.NotAvailable

	if el := doc.Find(ratingLabelSelector).First(); el.Length() > 0 {
		label, _ := el.Attr("aria-label")
		if m := ratingRe.FindStringSubmatch(label); m != nil {
			rating = strings.Replace(m[1], ",", ".", 1)
		}
	}

	if rating == types.NotAvailable {
		if el := doc.Find(ratingTextSelector).First(); el.Length() > 0 {
			rating = strings.ReplaceAll(strippedText(el), ",", ".")
		}
	}
	return rating
}

// CleanLabel trims a contact label and drops the icon glyphs the panel
// renders in front of it.
func CleanLabel(s string) string {
	return strings.TrimSpace(leadingRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

// strippedText concatenates the trimmed text nodes under sel, so sibling
// blocks like an icon and its label join without separators.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
