package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func samplePlace(name string) *types.Place {
	p := types.NewPlace("https://www.google.com/maps/place/" + name)
	p.Name = name
	p.Phone = "+74950000000"
	p.Rating = "4.5"
	return p
}

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "results.db"), testLogger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSaveAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	for _, name := range []string{"A", "B", "C"} {
		if err := s.Save(ctx, "task-1", samplePlace(name)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if err := s.Save(ctx, "task-2", samplePlace("Z")); err != nil {
		t.Fatal(err)
	}

	records, err := s.ByTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("by task: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"A", "B", "C"} {
		if records[i].Name != want {
			t.Errorf("record %d: expected %s, got %s", i, want, records[i].Name)
		}
		if records[i].TaskID != "task-1" || records[i].Address != types.NotAvailable {
			t.Errorf("record %d has unexpected fields: %+v", i, records[i])
		}
		if records[i].Timestamp.IsZero() {
			t.Errorf("record %d has no timestamp", i)
		}
	}

	recent, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Name != "Z" {
		t.Errorf("expected newest first with limit, got %+v", recent)
	}

	none, err := s.ByTask(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("expected no records, got %v, %v", none, err)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	s, err := OpenSQLite(ctx, path, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "t", samplePlace("Kept")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	records, err := s.ByTask(ctx, "t")
	if err != nil || len(records) != 1 || records[0].Name != "Kept" {
		t.Errorf("expected persisted record, got %v, %v", records, err)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	got := pg.rebind("SELECT * FROM results WHERE task_id = ? AND name = ? LIMIT ?")
	want := "SELECT * FROM results WHERE task_id = $1 AND name = $2 LIMIT $3"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	lite := &SQLStore{dialect: DialectSQLite}
	if q := lite.rebind("a = ?"); q != "a = ?" {
		t.Errorf("sqlite query should be unchanged, got %q", q)
	}
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@h/db", "postgres://u:p@h/db?sslmode=require"},
		{"postgres://u:p@h/db?connect_timeout=5", "postgres://u:p@h/db?connect_timeout=5&sslmode=require"},
		{"postgres://u:p@h/db?sslmode=disable", "postgres://u:p@h/db?sslmode=disable"},
	}
	for _, tt := range tests {
		if got := PostgresDSN(tt.in); got != tt.want {
			t.Errorf("PostgresDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDriver(t *testing.T) {
	tests := []struct {
		cfg  config.StorageConfig
		want string
	}{
		{config.StorageConfig{Driver: "auto"}, DialectSQLite},
		{config.StorageConfig{Driver: "auto", DatabaseURL: "postgres://x"}, DialectPostgres},
		{config.StorageConfig{Driver: "mongodb"}, "mongodb"},
		{config.StorageConfig{Driver: "none", DatabaseURL: "postgres://x"}, "none"},
	}
	for _, tt := range tests {
		if got := Driver(tt.cfg); got != tt.want {
			t.Errorf("Driver(%+v) = %s, want %s", tt.cfg, got, tt.want)
		}
	}
}

func TestOpenNoneAndUnknown(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Driver: "none"}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "none" {
		t.Errorf("expected none store, got %s", s.Name())
	}
	if err := s.Save(ctx, "t", samplePlace("x")); err != nil {
		t.Errorf("nop save should succeed, got %v", err)
	}
	if _, err := s.Recent(ctx, 10); !errors.Is(err, types.ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}
	if _, err := s.ByTask(ctx, "t"); !errors.Is(err, types.ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}

	if _, err := Open(ctx, config.StorageConfig{Driver: "redis"}, testLogger); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestOpenSQLiteFromConfig(t *testing.T) {
	cfg := config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "r.db")}
	s, err := Open(context.Background(), cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Name() != DialectSQLite {
		t.Errorf("expected sqlite, got %s", s.Name())
	}
}

type failingStore struct{ NopStore }

func (failingStore) Name() string { return "failing" }

func (failingStore) Save(context.Context, string, *types.Place) error {
	return errors.New("disk full")
}

func TestMultiStore(t *testing.T) {
	ctx := context.Background()
	primary := openTestSQLite(t)
	multi := NewMultiStore([]Store{primary, failingStore{}}, testLogger)

	if err := multi.Save(ctx, "t", samplePlace("A")); err == nil {
		t.Error("expected the failing backend's error")
	}
	records, err := multi.ByTask(ctx, "t")
	if err != nil || len(records) != 1 {
		t.Errorf("primary should still hold the record, got %v, %v", records, err)
	}

	empty := NewMultiStore(nil, testLogger)
	if _, err := empty.Recent(ctx, 1); !errors.Is(err, types.ErrNoDatabase) {
		t.Errorf("expected ErrNoDatabase, got %v", err)
	}
}

type recordingStore struct {
	NopStore
	saved []string
}

func (s *recordingStore) Name() string { return "memory" }

func (s *recordingStore) Save(_ context.Context, _ string, p *types.Place) error {
	s.saved = append(s.saved, p.Name)
	return nil
}

func withOpener(t *testing.T, name string, fn opener) {
	t.Helper()
	openers[name] = fn
	t.Cleanup(func() { delete(openers, name) })
}

func TestOpenWithMirror(t *testing.T) {
	ctx := context.Background()
	mirror := &recordingStore{}
	withOpener(t, "memory", func(context.Context, config.StorageConfig, *slog.Logger) (Store, error) {
		return mirror, nil
	})

	cfg := config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "r.db"), Mirror: "memory"}
	s, err := Open(ctx, cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, ok := s.(*MultiStore); !ok {
		t.Fatalf("expected a MultiStore, got %T", s)
	}
	if s.Name() != "multi(sqlite,memory)" {
		t.Errorf("unexpected name %q", s.Name())
	}
	if err := s.Save(ctx, "t", samplePlace("A")); err != nil {
		t.Fatal(err)
	}
	records, err := s.ByTask(ctx, "t")
	if err != nil || len(records) != 1 {
		t.Errorf("reads should come from sqlite, got %v, %v", records, err)
	}
	if len(mirror.saved) != 1 || mirror.saved[0] != "A" {
		t.Errorf("mirror should receive the save, got %v", mirror.saved)
	}
}

func TestOpenMirrorFailure(t *testing.T) {
	withOpener(t, "broken", func(context.Context, config.StorageConfig, *slog.Logger) (Store, error) {
		return nil, errors.New("unreachable")
	})

	cfg := config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "r.db"), Mirror: "broken"}
	if _, err := Open(context.Background(), cfg, testLogger); err == nil {
		t.Fatal("expected the mirror's open error")
	}
}

func TestOpenMirrorSameDriver(t *testing.T) {
	cfg := config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "r.db"), Mirror: "sqlite"}
	s, err := Open(context.Background(), cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Name() != DialectSQLite {
		t.Errorf("a mirror of the same driver is ignored, got %s", s.Name())
	}
}

func TestTimestampScan(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	inputs := []any{
		want,
		"2024-03-01 12:30:00",
		[]byte("2024-03-01T12:30:00Z"),
		"2024-03-01 12:30:00+00:00",
		want.Unix(),
	}
	for _, in := range inputs {
		var ts timestamp
		if err := ts.Scan(in); err != nil {
			t.Errorf("scan %T %v: %v", in, in, err)
			continue
		}
		if !ts.Equal(want) {
			t.Errorf("scan %v: got %v", in, ts.Time)
		}
	}

	var ts timestamp
	if err := ts.Scan("yesterday"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MAPGOAT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MAPGOAT_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	coll := "results_test_" + time.Now().Format("150405.000000")

	s, err := OpenMongo(ctx, uri, "mapgoat_test", coll, testLogger)
	if err != nil {
		t.Fatalf("open mongo: %v", err)
	}
	defer func() {
		_ = s.collection.Drop(ctx)
		s.Close()
	}()

	for _, name := range []string{"A", "B"} {
		if err := s.Save(ctx, "task", samplePlace(name)); err != nil {
			t.Fatal(err)
		}
	}
	records, err := s.ByTask(ctx, "task")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Name != "A" || records[1].ID != 2 {
		t.Errorf("unexpected records %+v", records)
	}
}
