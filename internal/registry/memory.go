package registry

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps mappings in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	handles map[string]Handle
	modes   map[string]Mode
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		handles: map[string]Handle{},
		modes:   map[string]Mode{},
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Handle, bool, error) {
	if key == "" {
		return Handle{}, false, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[key]
	return h, ok, nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, key string, h Handle) (Handle, error) {
	if key == "" {
		return Handle{}, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.handles[key]; ok {
		return existing, nil
	}
	s.handles[key] = h
	return h, nil
}

func (s *MemoryStore) GetMode(_ context.Context, key string) (Mode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modes[key]
	return m, ok, nil
}

func (s *MemoryStore) SetMode(_ context.Context, key string, mode Mode) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[key] = mode
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.handles))
	for k, h := range s.handles {
		out = append(out, Entry{Key: k, Handle: h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
