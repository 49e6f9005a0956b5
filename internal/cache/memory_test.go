package cache

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(clock *fakeClock) *MemoryStore {
	s := NewMemoryStore()
	s.now = clock.Now
	return s
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, _, ok := s.Get("GET:/nope"); ok {
		t.Error("Get succeeded for missing key")
	}
}

func TestMemoryStoreSetAndGet(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	h := http.Header{"Content-Type": {"application/json"}}
	s.Set("k", []byte("v1"), h, time.Minute)

	gotH, gotB, ok := s.Get("k")
	if !ok {
		t.Fatal("Get failed for fresh key")
	}
	if string(gotB) != "v1" {
		t.Errorf("body = %q, want %q", gotB, "v1")
	}
	if gotH.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", gotH.Get("Content-Type"))
	}

	// returned headers are a copy
	gotH.Set("Content-Type", "text/plain")
	again, _, _ := s.Get("k")
	if again.Get("Content-Type") != "application/json" {
		t.Error("mutating returned headers changed the stored entry")
	}

	// stored headers are a copy of the caller's map
	h.Set("X-Late", "1")
	again, _, _ = s.Get("k")
	if again.Get("X-Late") != "" {
		t.Error("mutating the caller's headers changed the stored entry")
	}
}

func TestMemoryStoreExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	s.Set("k", []byte("v"), nil, 10*time.Second)

	clock.Advance(10*time.Second - time.Nanosecond)
	if _, _, ok := s.Get("k"); !ok {
		t.Fatal("entry should be visible strictly before expiry")
	}

	clock.Advance(time.Nanosecond)
	if _, _, ok := s.Get("k"); ok {
		t.Fatal("entry should be invisible at expiry")
	}

	// stale reads do not delete
	if s.Len() != 1 {
		t.Errorf("Len = %d, expired entry should remain until sweep", s.Len())
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.Set("k", []byte("old"), nil, time.Second)
	clock.Advance(2 * time.Second)
	s.Set("k", []byte("new"), nil, time.Minute)

	_, body, ok := s.Get("k")
	if !ok || string(body) != "new" {
		t.Errorf("overwrite failed: ok=%v body=%q", ok, body)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.Set("short", []byte("a"), nil, 5*time.Second)
	s.Set("exact", []byte("b"), nil, 10*time.Second)
	s.Set("long", []byte("c"), nil, 20*time.Second)

	clock.Advance(10 * time.Second)
	removed := s.Sweep()

	if removed != 2 {
		t.Errorf("Sweep removed %d, want 2", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	if _, _, ok := s.Get("long"); !ok {
		t.Error("unexpired entry was swept")
	}
	if st := s.Stats(); st.Evictions != 2 || st.Size != 1 || st.MaxSize != 0 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestMemoryStoreRunStopsOnCancel(t *testing.T) {
	s := NewMemoryStore()
	s.Set("gone", []byte("x"), nil, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Error("background sweep did not remove the expired entry")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemoryStoreConcurrency(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup

	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				key := fmt.Sprintf("GET:/v1/extract?url=%d", j%16)
				switch j % 4 {
				case 0:
					s.Set(key, []byte(key), http.Header{"X-G": {fmt.Sprint(g)}}, time.Minute)
				case 3:
					s.Sweep()
				default:
					if _, b, ok := s.Get(key); ok && string(b) != key {
						t.Errorf("key %q returned body %q", key, b)
					}
				}
			}
		}(g)
	}
	wg.Wait()
}
