package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memohai/linerag/internal/config"
	"github.com/memohai/linerag/internal/db"
	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/metrics"
	"github.com/memohai/linerag/internal/registry"
)

func newGeminiClient(log *slog.Logger, cfg config.Config, m *metrics.Metrics) *gemini.Client {
	return gemini.NewClient(log, gemini.Options{
		APIKey:        cfg.Gemini.APIKey,
		BaseURL:       cfg.Gemini.BaseURL,
		Timeout:       cfg.Gemini.Timeout(),
		UploadTimeout: cfg.Gemini.UploadTimeout(),
		PollInterval:  cfg.Gemini.PollInterval(),
		Observe:       m.ObserveUpstream,
	})
}

// openStore opens the configured registry backend. The returned cleanup
// releases it.
func openStore(ctx context.Context, log *slog.Logger, cfg config.Config) (registry.Store, func(), error) {
	switch cfg.Registry.Backend {
	case "memory":
		log.Warn("using in-memory registry; store mappings are lost on restart")
		return registry.NewMemoryStore(), func() {}, nil
	case "postgres":
		dsn := cfg.Postgres.DSN()
		if err := db.Migrate(log, dsn); err != nil {
			return nil, nil, err
		}
		pool, err := db.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		return registry.NewPostgresStore(pool), pool.Close, nil
	default:
		store, err := registry.OpenSQLite(log, cfg.Registry.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}

func openLocker(ctx context.Context, log *slog.Logger, cfg config.Config) (registry.Locker, func(), error) {
	if cfg.Registry.Locker != config.LockerRedis {
		return registry.NewLocalLocker(), func() {}, nil
	}
	client, err := registry.OpenRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	return registry.NewRedisLocker(log, client, cfg.Redis.LockTTL()), func() { _ = client.Close() }, nil
}

func newRegistry(log *slog.Logger, cfg config.Config, store registry.Store, ai *gemini.Client, locker registry.Locker, m *metrics.Metrics) (*registry.Service, error) {
	return registry.NewService(log, store, ai, locker, registry.Options{
		CacheSize:     cfg.Registry.CacheSize,
		DefaultMode:   registry.Mode(cfg.KnowledgeBase.DefaultMode),
		OnCreate:      m.StoreCreated,
		CreateTimeout: cfg.Gemini.UploadTimeout(),
	})
}
