package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/engine"
	"github.com/IshaanNene/MapGoat/internal/observability"
	"github.com/IshaanNene/MapGoat/internal/storage"
	"github.com/IshaanNene/MapGoat/internal/task"
	"github.com/IshaanNene/MapGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeRunner struct {
	mu      sync.Mutex
	tasks   *task.Manager
	store   storage.Store
	metrics *observability.Metrics
	started []engine.Params
}

func newFakeRunner(store storage.Store) *fakeRunner {
	return &fakeRunner{
		tasks:   task.NewManager(0, testLogger),
		store:   store,
		metrics: observability.NewMetrics(testLogger),
	}
}

func (f *fakeRunner) Start(p engine.Params) (*task.Task, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, types.ErrInvalidQuery
	}
	f.mu.Lock()
	f.started = append(f.started, p)
	f.mu.Unlock()

	t := f.tasks.Create(p.Query, p.Many)
	_, cancel := context.WithCancel(context.Background())
	_ = f.tasks.Attach(t.ID(), cancel)
	return t, nil
}

func (f *fakeRunner) Cancel(id string) bool {
	t, err := f.tasks.Get(id)
	if err != nil || !t.Cancel() {
		return false
	}
	t.Finish(task.StatusCancelled)
	return true
}

func (f *fakeRunner) Tasks() *task.Manager            { return f.tasks }
func (f *fakeRunner) Store() storage.Store            { return f.store }
func (f *fakeRunner) Metrics() *observability.Metrics { return f.metrics }

func (f *fakeRunner) lastStarted() engine.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started[len(f.started)-1]
}

type memStore struct {
	records []types.Record
}

func (s *memStore) Name() string { return "memory" }

func (s *memStore) Save(_ context.Context, taskID string, p *types.Place) error {
	s.records = append(s.records, types.Record{
		ID:        int64(len(s.records) + 1),
		TaskID:    taskID,
		Place:     *p,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	return nil
}

func (s *memStore) Recent(_ context.Context, limit int) ([]types.Record, error) {
	var out []types.Record
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *memStore) ByTask(_ context.Context, taskID string) ([]types.Record, error) {
	var out []types.Record
	for _, r := range s.records {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

func newTestServer(store storage.Store) (*Server, *fakeRunner) {
	cfg := config.DefaultConfig()
	r := newFakeRunner(store)
	return NewServer(cfg, r, testLogger), r
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestParseStartsTask(t *testing.T) {
	s, r := newTestServer(storage.NopStore{})

	rec := do(t, s, "POST", "/parse", `{"query":"pizza Chicago","many":"5","lang":"en","region":"US","deep_search":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["task_id"] == "" {
		t.Fatal("expected a task id")
	}

	p := r.lastStarted()
	if p.Query != "pizza Chicago" || p.Many != 5 || p.Lang != "en" || p.Region != "US" || p.DeepSearch {
		t.Errorf("unexpected params: %+v", p)
	}
	if _, err := r.tasks.Get(resp["task_id"]); err != nil {
		t.Errorf("task not registered: %v", err)
	}
}

func TestParseDeepSearchDefault(t *testing.T) {
	s, r := newTestServer(storage.NopStore{})

	rec := do(t, s, "POST", "/parse", `{"query":"cafe","many":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	p := r.lastStarted()
	if !p.DeepSearch {
		t.Error("deep search should default to the configured value")
	}
	if p.Many != 3 {
		t.Errorf("expected many 3, got %d", p.Many)
	}
}

func TestParseBadRequests(t *testing.T) {
	s, _ := newTestServer(storage.NopStore{})

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query":"   "}`},
		{"missing query", `{}`},
		{"bad many", `{"query":"x","many":"lots"}`},
		{"bad json", `{"query":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, "POST", "/parse", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp map[string]string
			decode(t, rec, &resp)
			if resp["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{`7`, 7, true},
		{`"12"`, 12, true},
		{`" 4 "`, 4, true},
		{`""`, 0, true},
		{`null`, 0, true},
		{`2.0`, 2, true},
		{`"ten"`, 0, false},
	}
	for _, tt := range tests {
		var f flexInt
		err := json.Unmarshal([]byte(tt.in), &f)
		if (err == nil) != tt.ok {
			t.Errorf("%s: unexpected error state %v", tt.in, err)
			continue
		}
		if tt.ok && int(f) != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.in, tt.want, f)
		}
	}
}

func TestStatus(t *testing.T) {
	s, r := newTestServer(storage.NopStore{})
	tk, _ := r.Start(engine.Params{Query: "bakery", Many: 2})
	tk.Log("Searching: bakery")
	tk.AddResult(&types.Place{Name: "Crumbs", URL: "u1"})

	rec := do(t, s, "GET", "/status/"+tk.ID(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap task.Snapshot
	decode(t, rec, &snap)
	if snap.Status != task.StatusRunning || snap.Query != "bakery" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Logs) != 1 || len(snap.Results) != 1 || snap.Results[0].Name != "Crumbs" {
		t.Errorf("unexpected logs/results: %+v", snap)
	}

	rec = do(t, s, "GET", "/status/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["error"] != "Task not found" {
		t.Errorf("unexpected error body: %v", resp)
	}
}

func TestListTasks(t *testing.T) {
	s, r := newTestServer(storage.NopStore{})
	r.Start(engine.Params{Query: "a"})
	r.Start(engine.Params{Query: "b"})

	rec := do(t, s, "GET", "/tasks", "")
	var list []taskSummary
	decode(t, rec, &list)
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
}

func TestCancel(t *testing.T) {
	s, r := newTestServer(storage.NopStore{})
	tk, _ := r.Start(engine.Params{Query: "a"})

	if rec := do(t, s, "POST", "/cancel/"+tk.ID(), ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if tk.Status() != task.StatusCancelled {
		t.Errorf("expected cancelled, got %s", tk.Status())
	}
	if rec := do(t, s, "POST", "/cancel/"+tk.ID(), ""); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a finished task, got %d", rec.Code)
	}
	if rec := do(t, s, "POST", "/cancel/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func seededStore() *memStore {
	store := &memStore{}
	ctx := context.Background()
	store.Save(ctx, "t1", &types.Place{Name: "Joe's Pizza", Address: "7 Carmine St", Phone: "N/A", Rating: "4.6", Website: "N/A", URL: "https://maps.example/place/joes"})
	store.Save(ctx, "t1", &types.Place{Name: "Lucali", Address: "575 Henry St", Phone: "N/A", Rating: "4.7", Website: "N/A", URL: "https://maps.example/place/lucali"})
	store.Save(ctx, "t2", &types.Place{Name: "Other", URL: "u"})
	return store
}

func TestHistoryPage(t *testing.T) {
	s, _ := newTestServer(seededStore())

	rec := do(t, s, "GET", "/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Joe&#39;s Pizza", "Lucali", "2024-05-01 12:00:00", "3 saved places"} {
		if !strings.Contains(body, want) {
			t.Errorf("history page missing %q", want)
		}
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	s, _ := newTestServer(storage.NopStore{})

	rec := do(t, s, "GET", "/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No results yet") {
		t.Error("expected an empty table")
	}

	rec = do(t, s, "GET", "/api/history", "")
	var records []types.Record
	decode(t, rec, &records)
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestHistoryJSON(t *testing.T) {
	s, _ := newTestServer(seededStore())

	rec := do(t, s, "GET", "/api/history?limit=2", "")
	var records []types.Record
	decode(t, rec, &records)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "Other" || records[1].Name != "Lucali" {
		t.Errorf("expected newest first, got %s, %s", records[0].Name, records[1].Name)
	}
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(seededStore())

	rec := do(t, s, "GET", "/export/t1?format=csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="results_t1.csv"` {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected Content-Type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}

	rec = do(t, s, "GET", "/export/t1", "")
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "results_t1.xlsx") {
		t.Errorf("expected xlsx by default, got %q", cd)
	}
}

func TestExportErrors(t *testing.T) {
	s, _ := newTestServer(seededStore())

	if rec := do(t, s, "GET", "/export/unknown", ""); rec.Code != http.StatusNotFound ||
		!strings.Contains(rec.Body.String(), "No results found") {
		t.Errorf("expected 404 No results found, got %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, "GET", "/export/t1?format=pdf", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}

	s, _ = newTestServer(storage.NopStore{})
	if rec := do(t, s, "GET", "/export/t1", ""); rec.Code != http.StatusInternalServerError ||
		!strings.Contains(rec.Body.String(), "Database not connected") {
		t.Errorf("expected 500 Database not connected, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestBrotliResponses(t *testing.T) {
	s, _ := newTestServer(storage.NopStore{})

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "br" {
		t.Fatalf("expected br encoding, got %q", rec.Header().Get("Content-Encoding"))
	}
	var resp map[string]any
	if err := json.NewDecoder(brotli.NewReader(rec.Body)).Decode(&resp); err != nil {
		t.Fatalf("decode brotli body: %v", err)
	}
	if resp["status"] != "ok" || resp["storage"] != "none" {
		t.Errorf("unexpected health body: %v", resp)
	}
}

func TestAcceptsBrotli(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"br", true},
		{"gzip, deflate, br", true},
		{"br;q=0.5", true},
		{"br;q=0", false},
		{"gzip", false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept-Encoding", tt.header)
		if got := acceptsBrotli(req); got != tt.want {
			t.Errorf("acceptsBrotli(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestIndexAndMetrics(t *testing.T) {
	s, r := newTestServer(storage.NopStore{})

	rec := do(t, s, "GET", "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `id="search"`) {
		t.Errorf("unexpected index page: %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", rec.Code)
	}

	r.metrics.PlacesParsed.Add(4)
	rec = do(t, s, "GET", "/metrics", "")
	if !strings.Contains(rec.Body.String(), "mapgoat_places_parsed_total 4") {
		t.Errorf("metrics missing parsed counter:\n%s", rec.Body.String())
	}
}
