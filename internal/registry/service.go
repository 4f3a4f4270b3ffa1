package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/memohai/linerag/internal/conversation"
	"github.com/memohai/linerag/internal/gemini"
)

// Options tunes a Service.
type Options struct {
	CacheSize   int
	DefaultMode Mode
	// OnCreate is called once per store created upstream.
	OnCreate func()
	// CreateTimeout bounds a store creation shared by concurrent callers.
	// It runs detached from any single caller's context.
	CreateTimeout time.Duration
}

// DefaultCreateTimeout applies when Options.CreateTimeout is zero.
const DefaultCreateTimeout = 2 * time.Minute

// Service maps conversations to File Search stores. Lookups never create;
// ResolveOrCreate creates at most one store per conversation even under
// concurrent first uploads.
type Service struct {
	store       Store
	upstream    Upstream
	locker      Locker
	cache       *lru.Cache[string, Handle]
	group       singleflight.Group
	defaultMode Mode
	onCreate    func()
	timeout     time.Duration
	logger      *slog.Logger
}

func NewService(log *slog.Logger, store Store, upstream Upstream, locker Locker, opts Options) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil || upstream == nil {
		return nil, fmt.Errorf("registry: store and upstream are required")
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = ModePersonal
	}
	if _, err := ParseMode(string(opts.DefaultMode)); err != nil {
		return nil, err
	}
	if opts.CreateTimeout <= 0 {
		opts.CreateTimeout = DefaultCreateTimeout
	}
	s := &Service{
		store:       store,
		upstream:    upstream,
		locker:      locker,
		defaultMode: opts.DefaultMode,
		onCreate:    opts.OnCreate,
		timeout:     opts.CreateTimeout,
		logger:      log.With(slog.String("service", "registry")),
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, Handle](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("registry cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Resolve returns the conversation's store if one exists. It never creates.
func (s *Service) Resolve(ctx context.Context, id conversation.Identity) (Handle, bool, error) {
	if id.IsZero() {
		return Handle{}, false, conversation.ErrNoIdentity
	}
	return s.lookup(ctx, id.Key())
}

// ResolveOrCreate returns the conversation's store, creating it on first use.
func (s *Service) ResolveOrCreate(ctx context.Context, id conversation.Identity) (Handle, error) {
	if id.IsZero() {
		return Handle{}, conversation.ErrNoIdentity
	}
	return s.ensure(ctx, id.Key(), id.StoreDisplayName())
}

// ResolveNamed finds a shared store by display name, consulting upstream on
// a local miss. It never creates.
func (s *Service) ResolveNamed(ctx context.Context, displayName string) (Handle, bool, error) {
	if displayName == "" {
		return Handle{}, false, ErrEmptyKey
	}
	key := namedKey(displayName)
	if h, ok, err := s.lookup(ctx, key); err != nil || ok {
		return h, ok, err
	}
	store, found, err := s.upstream.FindStore(ctx, displayName)
	if err != nil {
		return Handle{}, false, err
	}
	if !found {
		return Handle{}, false, nil
	}
	h, err := s.store.PutIfAbsent(ctx, key, handleFrom(store, displayName))
	if err != nil {
		return Handle{}, false, err
	}
	s.remember(key, h)
	return h, true, nil
}

// EnsureNamed finds or creates a shared store by display name.
func (s *Service) EnsureNamed(ctx context.Context, displayName string) (Handle, error) {
	if displayName == "" {
		return Handle{}, ErrEmptyKey
	}
	return s.ensure(ctx, namedKey(displayName), displayName)
}

// Mode returns the conversation's query scope, or the default when unset.
func (s *Service) Mode(ctx context.Context, id conversation.Identity) (Mode, error) {
	if id.IsZero() {
		return "", conversation.ErrNoIdentity
	}
	mode, ok, err := s.store.GetMode(ctx, id.Key())
	if err != nil {
		return "", err
	}
	if !ok {
		return s.defaultMode, nil
	}
	return mode, nil
}

func (s *Service) SetMode(ctx context.Context, id conversation.Identity, mode Mode) error {
	if id.IsZero() {
		return conversation.ErrNoIdentity
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	return s.store.SetMode(ctx, id.Key(), mode)
}

// List returns every persisted mapping.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.store.List(ctx)
}

func (s *Service) lookup(ctx context.Context, key string) (Handle, bool, error) {
	if s.cache != nil {
		if h, ok := s.cache.Get(key); ok {
			return h, true, nil
		}
	}
	h, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return Handle{}, false, fmt.Errorf("registry lookup: %w", err)
	}
	if ok {
		s.remember(key, h)
	}
	return h, ok, nil
}

func (s *Service) ensure(ctx context.Context, key, displayName string) (Handle, error) {
	if h, ok, err := s.lookup(ctx, key); err != nil || ok {
		return h, err
	}
	// The flight outlives the caller that started it, so one expired event
	// does not fail every upload waiting on the same conversation.
	ch := s.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.create(flightCtx, key, displayName)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Handle{}, res.Err
		}
		return res.Val.(Handle), nil
	case <-ctx.Done():
		return Handle{}, fmt.Errorf("registry create: %w", ctx.Err())
	}
}

func (s *Service) create(ctx context.Context, key, displayName string) (Handle, error) {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return Handle{}, fmt.Errorf("registry lock: %w", err)
	}
	defer unlock()

	// Another process may have won while we waited for the lock.
	if h, ok, err := s.store.Get(ctx, key); err != nil {
		return Handle{}, fmt.Errorf("registry lookup: %w", err)
	} else if ok {
		s.remember(key, h)
		return h, nil
	}

	store, found, err := s.upstream.FindStore(ctx, displayName)
	if err != nil {
		return Handle{}, err
	}
	created := false
	if !found {
		store, err = s.upstream.CreateStore(ctx, displayName)
		if err != nil {
			return Handle{}, err
		}
		created = true
		if s.onCreate != nil {
			s.onCreate()
		}
	}

	candidate := handleFrom(store, displayName)
	winner, err := s.store.PutIfAbsent(ctx, key, candidate)
	if err != nil {
		return Handle{}, err
	}
	if winner.StoreName != candidate.StoreName {
		s.logger.Warn("store mapping already claimed; keeping existing store",
			slog.String("key", key),
			slog.String("kept", winner.StoreName),
			slog.String("discarded", candidate.StoreName),
			slog.Bool("created", created))
	} else {
		s.logger.Info("store mapped",
			slog.String("key", key),
			slog.String("store", winner.StoreName),
			slog.Bool("created", created))
	}
	s.remember(key, winner)
	return winner, nil
}

func (s *Service) remember(key string, h Handle) {
	if s.cache != nil {
		s.cache.Add(key, h)
	}
}

func handleFrom(store gemini.Store, displayName string) Handle {
	created := store.CreateTime
	if created.IsZero() {
		created = time.Now().UTC()
	}
	name := store.DisplayName
	if name == "" {
		name = displayName
	}
	return Handle{StoreName: store.Name, DisplayName: name, CreatedAt: created}
}
