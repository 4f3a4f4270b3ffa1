package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversation_stores (
	conversation_key TEXT PRIMARY KEY,
	store_name       TEXT NOT NULL,
	display_name     TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_stores_display_name
	ON conversation_stores(display_name);

CREATE TABLE IF NOT EXISTS conversation_modes (
	conversation_key TEXT PRIMARY KEY,
	mode             TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
`

// SQLiteStore persists mappings in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(log *slog.Logger, path string) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger := log.With(slog.String("service", "registry_sqlite"))
	logger.Info("sqlite registry opened", slog.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Handle, bool, error) {
	if key == "" {
		return Handle{}, false, ErrEmptyKey
	}
	var h Handle
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT store_name, display_name, created_at FROM conversation_stores WHERE conversation_key = ?`,
		key,
	).Scan(&h.StoreName, &h.DisplayName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Handle{}, false, nil
	}
	if err != nil {
		return Handle{}, false, fmt.Errorf("get handle: %w", err)
	}
	h.CreatedAt = parseTime(created)
	return h, true, nil
}

func (s *SQLiteStore) PutIfAbsent(ctx context.Context, key string, h Handle) (Handle, error) {
	if key == "" {
		return Handle{}, ErrEmptyKey
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_stores (conversation_key, store_name, display_name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(conversation_key) DO NOTHING`,
		key, h.StoreName, h.DisplayName, h.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Handle{}, fmt.Errorf("insert handle: %w", err)
	}
	stored, ok, err := s.Get(ctx, key)
	if err != nil {
		return Handle{}, err
	}
	if !ok {
		return Handle{}, fmt.Errorf("handle for %s vanished after insert", key)
	}
	return stored, nil
}

func (s *SQLiteStore) GetMode(ctx context.Context, key string) (Mode, bool, error) {
	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT mode FROM conversation_modes WHERE conversation_key = ?`, key,
	).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get mode: %w", err)
	}
	return Mode(mode), true, nil
}

func (s *SQLiteStore) SetMode(ctx context.Context, key string, mode Mode) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_modes (conversation_key, mode, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(conversation_key) DO UPDATE SET mode = excluded.mode, updated_at = excluded.updated_at`,
		key, string(mode), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_key, store_name, display_name, created_at FROM conversation_stores ORDER BY conversation_key`)
	if err != nil {
		return nil, fmt.Errorf("list handles: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.Key, &e.Handle.StoreName, &e.Handle.DisplayName, &created); err != nil {
			return nil, fmt.Errorf("scan handle: %w", err)
		}
		e.Handle.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
