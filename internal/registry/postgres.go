package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists mappings in Postgres so several replicas can share
// them. The schema is managed by internal/db migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Handle, bool, error) {
	if key == "" {
		return Handle{}, false, ErrEmptyKey
	}
	var h Handle
	err := s.pool.QueryRow(ctx,
		`SELECT store_name, display_name, created_at FROM conversation_stores WHERE conversation_key = $1`,
		key,
	).Scan(&h.StoreName, &h.DisplayName, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Handle{}, false, nil
	}
	if err != nil {
		return Handle{}, false, fmt.Errorf("get handle: %w", err)
	}
	return h, true, nil
}

func (s *PostgresStore) PutIfAbsent(ctx context.Context, key string, h Handle) (Handle, error) {
	if key == "" {
		return Handle{}, ErrEmptyKey
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_stores (conversation_key, store_name, display_name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (conversation_key) DO NOTHING`,
		key, h.StoreName, h.DisplayName, h.CreatedAt,
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

func (s *PostgresStore) GetMode(ctx context.Context, key string) (Mode, bool, error) {
	var mode string
	err := s.pool.QueryRow(ctx,
		`SELECT mode FROM conversation_modes WHERE conversation_key = $1`, key,
	).Scan(&mode)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get mode: %w", err)
	}
	return Mode(mode), true, nil
}

func (s *PostgresStore) SetMode(ctx context.Context, key string, mode Mode) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_modes (conversation_key, mode, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (conversation_key) DO UPDATE SET mode = EXCLUDED.mode, updated_at = now()`,
		key, string(mode),
	)
	if err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT conversation_key, store_name, display_name, created_at FROM conversation_stores ORDER BY conversation_key`)
	if err != nil {
		return nil, fmt.Errorf("list handles: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Handle.StoreName, &e.Handle.DisplayName, &e.Handle.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan handle: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close is a no-op; the pool's owner closes it.
func (s *PostgresStore) Close() error { return nil }
