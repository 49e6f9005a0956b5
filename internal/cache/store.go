package cache

import (
	"net/http"
	"time"
)

// Entry is a stored response. Body is shared with readers and must not be
// mutated after Set.
type Entry struct {
	Headers   http.Header
	Body      []byte
	ExpiresAt time.Time
}

// StoreStats contains storage-level statistics.
type StoreStats struct {
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`  // 0 means unbounded
	Evictions int64 `json:"evictions"` // entries removed by sweep or LRU pressure
}

// Store abstracts the cache storage backend.
type Store interface {
	// Get returns the entry for key only while it is unexpired.
	Get(key string) (http.Header, []byte, bool)
	// Set overwrites any entry for key, expiring it ttl from now.
	Set(key string, body []byte, headers http.Header, ttl time.Duration)
	Stats() StoreStats
}
