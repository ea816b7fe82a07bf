package parser

import (
	"errors"
	"testing"

	"github.com/IshaanNene/MapGoat/internal/types"
)

const placeHTML = `<!DOCTYPE html>
<html>
<body>
  <div role="main">
    <h1 class="DUwDvf"> Кофейня   <span>Зерно</span> </h1>
    <div class="F7nice">
      <span aria-hidden="true">4,6</span>
      <span role="img" aria-label="4,6 звезды"></span>
    </div>
    <button data-item-id="address" aria-label="Адрес">
      <div class="icon">&#xe0c8;</div>
      <div class="Io6YTe">ул. Тверская, 1, Москва</div>
    </button>
    <button data-item-id="phone:tel:+74951234567">
      <div class="icon">&#xe0b0;</div>
      <div class="Io6YTe">+7 495 123-45-67</div>
    </button>
    <a data-item-id="authority" href="https://zerno.example.ru/">
      <div class="icon">&#xe80b;</div>
      <div>zerno.example.ru</div>
    </a>
  </div>
</body>
</html>`

func TestParsePlace(t *testing.T) {
	p, err := ParsePlace(placeHTML, "https://www.google.com/maps/place/Zerno")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := types.Place{
		Name:    "КофейняЗерно",
		Address: "ул. Тверская, 1, Москва",
		Phone:   "+74951234567",
		Rating:  "4.6",
		Website: "https://zerno.example.ru/",
		URL:     "https://www.google.com/maps/place/Zerno",
	}
	if *p != want {
		t.Errorf("unexpected place:\n got %+v\nwant %+v", *p, want)
	}
}

func TestParsePlaceFallbacks(t *testing.T) {
	page := `<html><body>
  <h1>Joe's Pizza</h1>
  <span class="MW4etd">4,4</span>
  <button data-item-id="phone"><span>&#xe0b0;</span><span>(212) 366-1182</span></button>
  <a aria-label="Open website" href="https://joespizzanyc.example.com">site</a>
</body></html>`

	p, err := ParsePlace(page, "https://maps.example/place/joes")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Rating != "4.4" {
		t.Errorf("expected rating from text fallback, got %q", p.Rating)
	}
	if p.Phone != "(212) 366-1182" {
		t.Errorf("expected phone from label, got %q", p.Phone)
	}
	if p.Website != "https://joespizzanyc.example.com" {
		t.Errorf("expected website from aria-label fallback, got %q", p.Website)
	}
	if p.Address != types.NotAvailable {
		t.Errorf("expected N/A address, got %q", p.Address)
	}
}

func TestParsePlaceBarePage(t *testing.T) {
	p, err := ParsePlace("<html><body><p>nothing here</p></body></html>", "u")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i, f := range p.Fields()[:5] {
		if f != types.NotAvailable {
			t.Errorf("field %s: expected N/A, got %q", types.FieldNames()[i], f)
		}
	}
	if p.URL != "u" {
		t.Errorf("expected url kept, got %q", p.URL)
	}
}

func TestParsePlaceEmpty(t *testing.T) {
	_, err := ParsePlace("  ", "u")
	if !errors.Is(err, types.ErrEmptyPage) {
		t.Fatalf("expected ErrEmptyPage, got %v", err)
	}
}

func TestCleanLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ул. Тверская, 1", "ул. Тверская, 1"},
		{"  +7 495 000-00-00 ", "+7 495 000-00-00"},
		{"(212) 366-1182", "(212) 366-1182"},
		{"•· 5th Avenue", "5th Avenue"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanLabel(tt.in); got != tt.want {
			t.Errorf("CleanLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlaceLinks(t *testing.T) {
	page := `<html><body><div role="feed">
  <a href="https://www.google.com/maps/place/A/data=1">A</a>
  <a href="/maps/place/B/data=2">B</a>
  <a href="https://www.google.com/maps/place/A/data=1#reviews">A again</a>
  <a href="/maps/search/other">not a place</a>
  <a href="javascript:void(0)">js</a>
  <a href="/maps/place/C">C</a>
</div></body></html>`

	links, err := PlaceLinks(page, "https://www.google.com/maps/search/pizza?hl=en")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	want := []string{
		"https://www.google.com/maps/place/A/data=1",
		"https://www.google.com/maps/place/B/data=2",
		"https://www.google.com/maps/place/C",
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("link %d: expected %s, got %s", i, want[i], links[i])
		}
	}
}

func TestPlaceLinksNone(t *testing.T) {
	links, err := PlaceLinks("<html><body></body></html>", "https://www.google.com/maps/search/x")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected no links, got %v", links)
	}
}
