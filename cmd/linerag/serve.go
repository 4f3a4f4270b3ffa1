package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/linerag/internal/assistant"
	"github.com/memohai/linerag/internal/channel/adapters/line"
	"github.com/memohai/linerag/internal/config"
	"github.com/memohai/linerag/internal/dedupe"
	"github.com/memohai/linerag/internal/gemini"
	"github.com/memohai/linerag/internal/handlers"
	"github.com/memohai/linerag/internal/logger"
	"github.com/memohai/linerag/internal/metrics"
	"github.com/memohai/linerag/internal/registry"
	"github.com/memohai/linerag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app := newServeApp(cfg)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}

func newServeApp(cfg config.Config) *fx.App {
	return fx.New(
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			metrics.New,
			newGeminiClient,
			provideRegistryStore,
			provideLocker,
			newRegistry,
			provideLineClient,
			line.NewMessenger,
			provideAssistant,
			provideDispatcher,
			provideServerHandler(provideHealthHandler),
			provideServerHandler(handlers.NewMetricsHandler),
			provideServerHandler(provideWebhookHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideRegistryStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (registry.Store, error) {
	store, cleanup, err := openStore(context.Background(), log, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { cleanup(); return nil }})
	return store, nil
}

func provideLocker(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (registry.Locker, error) {
	locker, cleanup, err := openLocker(context.Background(), log, cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { cleanup(); return nil }})
	return locker, nil
}

func provideHealthHandler(log *slog.Logger) *handlers.HealthHandler {
	return handlers.NewHealthHandler(log, version)
}

func provideLineClient(cfg config.Config) (*linebot.Client, error) {
	return line.NewClient(cfg.Line)
}

func provideAssistant(log *slog.Logger, cfg config.Config, reg *registry.Service, ai *gemini.Client, msgr *line.Messenger) *assistant.Service {
	kbStore := ""
	if cfg.KnowledgeBase.Enabled {
		kbStore = cfg.KnowledgeBase.StoreName
	}
	return assistant.NewService(log, assistant.Config{
		Model:              cfg.Gemini.Model,
		Temperature:        cfg.Gemini.Temperature,
		MaxFileBytes:       cfg.Limits.MaxFileBytes,
		MaxImageBytes:      cfg.Limits.MaxImageBytes,
		KnowledgeBaseStore: kbStore,
		SystemPrompt:       cfg.Gemini.SystemPrompt,
	}, reg, ai, msgr)
}

func provideDispatcher(log *slog.Logger, cfg config.Config, svc *assistant.Service, m *metrics.Metrics) *assistant.Dispatcher {
	var cache *dedupe.Cache
	if cfg.Limits.DedupeTTLSeconds > 0 {
		cache = dedupe.New(cfg.Limits.DedupeTTL(), cfg.Limits.DedupeSize)
	}
	return assistant.NewDispatcher(log, svc, assistant.DispatcherOptions{
		Timeout: cfg.Limits.EventTimeout(),
		Dedupe:  cache,
		Metrics: m,
	})
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, client *linebot.Client, d *assistant.Dispatcher) *line.WebhookHandler {
	return line.NewWebhookHandler(log, cfg.Server.WebhookPath, client, d)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, dispatcher *assistant.Dispatcher, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting linerag", slog.String("version", version), slog.String("addr", srv.Addr()))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			if err := dispatcher.Shutdown(ctx); err != nil {
				logger.Warn("in-flight events abandoned", slog.Any("error", err))
			}
			return nil
		},
	})
}
