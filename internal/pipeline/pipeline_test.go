package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/MapGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestDefaultPipeline(t *testing.T) {
	p := Default(testLogger)
	if p.Len() != 4 {
		t.Fatalf("expected 4 middleware, got %d", p.Len())
	}

	place := &types.Place{
		Name:    "  Café &amp;   Bar\n",
		Address: "ул.  Арбат,\t10",
		Phone:   "",
		Rating:  "4,8",
		Website: " https://cafe.example/a  b ",
		URL:     "https://maps.example/place/1",
	}

	got, err := p.Process(place)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	want := types.Place{
		Name:    "Café & Bar",
		Address: "ул. Арбат, 10",
		Phone:   types.NotAvailable,
		Rating:  "4.8",
		Website: "https://cafe.example/a  b",
		URL:     "https://maps.example/place/1",
	}
	if *got != want {
		t.Errorf("unexpected place:\n got %+v\nwant %+v", *got, want)
	}
}

func TestRatingKeepsNotAvailable(t *testing.T) {
	m := &RatingNormalizeMiddleware{}
	got, _ := m.Process(types.NewPlace("u"))
	if got.Rating != types.NotAvailable {
		t.Errorf("expected N/A, got %q", got.Rating)
	}
}

func TestRequiredNameMiddleware(t *testing.T) {
	m := &RequiredNameMiddleware{}

	if got, _ := m.Process(types.NewPlace("u")); got != nil {
		t.Error("place without a name should be dropped")
	}

	named := types.NewPlace("u")
	named.Name = "Joe's"
	if got, _ := m.Process(named); got == nil {
		t.Error("named place should pass")
	}
}

func TestDedupMiddleware(t *testing.T) {
	p := New(testLogger)
	p.Use(NewDedupMiddleware())

	if got, _ := p.Process(types.NewPlace("https://a")); got == nil {
		t.Fatal("first place should pass")
	}
	if got, _ := p.Process(types.NewPlace("https://a")); got != nil {
		t.Error("duplicate should be dropped")
	}
	if got, _ := p.Process(types.NewPlace("https://b")); got == nil {
		t.Error("distinct place should pass")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "boom" }

func (failingMiddleware) Process(*types.Place) (*types.Place, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorStage(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(failingMiddleware{})

	_, err := p.Process(types.NewPlace("u"))
	var perr *types.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != "boom" {
		t.Errorf("expected stage boom, got %q", perr.Stage)
	}
}
