package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/MapGoat/internal/types"
)

// SQL dialects supported by SQLStore.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var schemas = map[string]string{
	DialectSQLite: `CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT,
	name TEXT,
	address TEXT,
	phone TEXT,
	rating TEXT,
	website TEXT,
	url TEXT,
	timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
	DialectPostgres: `CREATE TABLE IF NOT EXISTS results (
	id SERIAL PRIMARY KEY,
	task_id TEXT,
	name TEXT,
	address TEXT,
	phone TEXT,
	rating TEXT,
	website TEXT,
	url TEXT,
	timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
}

const (
	insertQuery = `INSERT INTO results (task_id, name, address, phone, rating, website, url, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	selectColumns = `SELECT id, task_id, name, address, phone, rating, website, url, timestamp FROM results`
)

// SQLStore writes results to a SQLite file or a PostgreSQL database.
type SQLStore struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

// OpenSQLite opens (creating if needed) a SQLite results database at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, &types.StorageError{Backend: DialectSQLite, Op: "mkdir", Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &types.StorageError{Backend: DialectSQLite, Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, &types.StorageError{Backend: DialectSQLite, Op: "pragma", Err: err}
		}
	}
	return newSQLStore(ctx, db, DialectSQLite, logger)
}

// OpenPostgres connects to the database named by dsn.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("pgx", PostgresDSN(dsn))
	if err != nil {
		return nil, &types.StorageError{Backend: DialectPostgres, Op: "open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: DialectPostgres, Op: "ping", Err: err}
	}
	return newSQLStore(ctx, db, DialectPostgres, logger)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect string, logger *slog.Logger) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, schemas[dialect]); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: dialect, Op: "create table", Err: err}
	}
	s := &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With("component", dialect+"_storage"),
	}
	s.logger.Debug("results table ready")
	return s, nil
}

// PostgresDSN appends sslmode=require unless the DSN already sets sslmode.
func PostgresDSN(dsn string) string {
	if strings.Contains(dsn, "sslmode") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=require"
	}
	return dsn + "?sslmode=require"
}

func (s *SQLStore) Name() string { return s.dialect }

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Save(ctx context.Context, taskID string, p *types.Place) error {
	_, err := s.db.ExecContext(ctx, s.rebind(insertQuery),
		taskID, p.Name, p.Address, p.Phone, p.Rating, p.Website, p.URL, time.Now().UTC())
	if err != nil {
		return &types.StorageError{Backend: s.dialect, Op: "insert", Err: err}
	}
	return nil
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]types.Record, error) {
	return s.query(ctx, "recent", selectColumns+" ORDER BY timestamp DESC, id DESC LIMIT ?", limit)
}

func (s *SQLStore) ByTask(ctx context.Context, taskID string) ([]types.Record, error) {
	return s.query(ctx, "by task", selectColumns+" WHERE task_id = ? ORDER BY id", taskID)
}

func (s *SQLStore) query(ctx context.Context, op, query string, args ...any) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, &types.StorageError{Backend: s.dialect, Op: op, Err: err}
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var (
			r  types.Record
			ts timestamp
		)
		var taskID, name, address, phone, rating, website, url sql.NullString
		if err := rows.Scan(&r.ID, &taskID, &name, &address, &phone, &rating, &website, &url, &ts); err != nil {
			return nil, &types.StorageError{Backend: s.dialect, Op: op, Err: err}
		}
		r.TaskID = taskID.String
		r.Name = name.String
		r.Address = address.String
		r.Phone = phone.String
		r.Rating = rating.String
		r.Website = website.String
		r.URL = url.String
		r.Timestamp = ts.Time
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StorageError{Backend: s.dialect, Op: op, Err: err}
	}
	return records, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// timestamp scans the timestamp column whichever way the driver reports it.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v
	case int64:
		t.Time = time.Unix(v, 0).UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func (t *timestamp) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}
