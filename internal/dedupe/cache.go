// Package dedupe drops webhook events the platform delivers more than once.
package dedupe

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultTTL  = 10 * time.Minute
	DefaultSize = 4096
)

// Cache remembers recently seen keys for a bounded time and count.
type Cache struct {
	mu   sync.Mutex
	seen *expirable.LRU[string, struct{}]
}

func New(ttl time.Duration, size int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{seen: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// CheckAndMark reports whether key was already seen, and marks it seen.
// Empty keys are never treated as duplicates.
func (c *Cache) CheckAndMark(key string) bool {
	if c == nil || key == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen.Contains(key) {
		return true
	}
	c.seen.Add(key, struct{}{})
	return false
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.seen.Len()
}
