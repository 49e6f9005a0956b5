package cache

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/logging"
)

// DefaultSweepInterval is how often Run removes expired entries.
const DefaultSweepInterval = 60 * time.Second

// MemoryStore is an unbounded in-memory TTL map guarded by a single RWMutex.
//
// Reads never delete: an expired entry stays in the map, invisible, until the
// next Sweep or an overwriting Set. Nothing caps the number of entries or
// their total size; memory is reclaimed only by sweeping.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
	swept   atomic.Int64
}

// NewMemoryStore creates an empty store. Call Run to start sweeping.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(key string) (http.Header, []byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.ExpiresAt) {
		return nil, nil, false
	}
	return e.Headers.Clone(), e.Body, true
}

func (s *MemoryStore) Set(key string, body []byte, headers http.Header, ttl time.Duration) {
	e := &Entry{
		Headers:   headers.Clone(),
		Body:      body,
		ExpiresAt: s.now().Add(ttl),
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Sweep removes every entry whose expiry is at or before now and returns how
// many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !e.ExpiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	s.swept.Add(int64(removed))
	return removed
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logging.Debug("Cache sweep removed expired entries",
					zap.Int("removed", n),
					zap.Int("remaining", s.Len()),
				)
			}
		}
	}
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Stats() StoreStats {
	return StoreStats{
		Size:      s.Len(),
		Evictions: s.swept.Load(),
	}
}
