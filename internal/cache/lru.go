package cache

import (
	"net/http"
	"sync/atomic"
	"time"

	expirable "github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUStore is a bounded alternative to MemoryStore, enabled only through
// cache.max_entries. Every entry shares the TTL given at construction; the
// ttl argument to Set is ignored.
type LRUStore struct {
	lru       *expirable.LRU[string, *Entry]
	evictions atomic.Int64
	maxSize   int
	ttl       time.Duration
}

// NewLRUStore creates a bounded store holding at most maxSize entries.
func NewLRUStore(maxSize int, ttl time.Duration) *LRUStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	s := &LRUStore{
		maxSize: maxSize,
		ttl:     ttl,
	}
	s.lru = expirable.NewLRU[string, *Entry](maxSize, func(key string, value *Entry) {
		s.evictions.Add(1)
	}, ttl)
	return s
}

func (s *LRUStore) Get(key string) (http.Header, []byte, bool) {
	e, ok := s.lru.Get(key)
	if !ok || !time.Now().Before(e.ExpiresAt) {
		return nil, nil, false
	}
	return e.Headers.Clone(), e.Body, true
}

func (s *LRUStore) Set(key string, body []byte, headers http.Header, _ time.Duration) {
	s.lru.Add(key, &Entry{
		Headers:   headers.Clone(),
		Body:      body,
		ExpiresAt: time.Now().Add(s.ttl),
	})
}

func (s *LRUStore) Stats() StoreStats {
	return StoreStats{
		Size:      s.lru.Len(),
		MaxSize:   s.maxSize,
		Evictions: s.evictions.Load(),
	}
}
