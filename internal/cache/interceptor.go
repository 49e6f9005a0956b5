package cache

import (
	"bytes"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/errors"
	"github.com/wudi/linkpreview/internal/logging"
)

// Result is the value of the cache marker header.
type Result string

const (
	ResultHit  Result = "HIT"
	ResultMiss Result = "MISS"
)

const (
	DefaultMaxBodySize = 32 << 20 // 32 MiB
	DefaultHeader      = "X-Gizo-Cache"
)

// InterceptorConfig configures an Interceptor. Zero values take defaults.
type InterceptorConfig struct {
	TTL         time.Duration
	MaxBodySize int64
	Header      string
}

// InterceptorStats contains interceptor counters.
type InterceptorStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Oversized int64 `json:"oversized"`
}

// Interceptor caches successful GET responses of the handler it wraps.
//
// Concurrent misses for the same key are not coalesced: each runs the handler
// and each stores its result, the last Set wins.
type Interceptor struct {
	store       Store
	ttl         time.Duration
	maxBodySize int64
	header      string
	observer    func(Result)

	hits      atomic.Int64
	misses    atomic.Int64
	oversized atomic.Int64
}

// NewInterceptor creates an interceptor backed by store.
func NewInterceptor(store Store, cfg InterceptorConfig) *Interceptor {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxBodySize := cfg.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	header := cfg.Header
	if header == "" {
		header = DefaultHeader
	}
	return &Interceptor{
		store:       store,
		ttl:         ttl,
		maxBodySize: maxBodySize,
		header:      header,
	}
}

// OnResult registers fn to be called with the outcome of every cacheable
// request.
func (i *Interceptor) OnResult(fn func(Result)) {
	i.observer = fn
}

// BuildKey returns the exact method, path and raw query of r. Query
// parameters are not reordered, so differently ordered queries are distinct
// keys.
func BuildKey(r *http.Request) string {
	key := r.Method + ":" + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	return key
}

// Middleware wraps next with the cache.
func (i *Interceptor) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := BuildKey(r)

			if headers, body, ok := i.store.Get(key); ok {
				i.hits.Add(1)
				i.record(ResultHit)
				dst := w.Header()
				for k, v := range headers {
					dst[k] = v
				}
				dst.Set(i.header, string(ResultHit))
				w.WriteHeader(http.StatusOK)
				w.Write(body)
				return
			}

			i.misses.Add(1)
			i.record(ResultMiss)

			cw := newCaptureWriter(w, i.maxBodySize, i.header)
			next.ServeHTTP(cw, r)
			cw.finish()

			if cw.overflowed {
				i.oversized.Add(1)
				logging.Warn("Response not cached",
					zap.String("key", key),
					zap.Int64("max_body_size", i.maxBodySize),
					zap.Error(errors.ErrBodyTooLarge),
				)
				return
			}
			if cw.storable() {
				i.store.Set(key, cw.body.Bytes(), cw.header, i.ttl)
			}
		})
	}
}

// Stats returns interceptor counters.
func (i *Interceptor) Stats() InterceptorStats {
	return InterceptorStats{
		Hits:      i.hits.Load(),
		Misses:    i.misses.Load(),
		Oversized: i.oversized.Load(),
	}
}

func (i *Interceptor) record(res Result) {
	if i.observer != nil {
		i.observer(res)
	}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// captureWriter buffers a successful response so it can be stored before it
// is emitted. Headers set by the wrapped handler live in a private map, so
// headers set by outer middleware are never stored.
//
// Non-2xx responses, and bodies that grow past limit, switch the writer to
// pass-through: headers and anything buffered so far are flushed and the rest
// streams straight to the client.
type captureWriter struct {
	w           http.ResponseWriter
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
	limit       int64
	marker      string
	passthrough bool
	overflowed  bool
}

func newCaptureWriter(w http.ResponseWriter, limit int64, marker string) *captureWriter {
	return &captureWriter{
		w:      w,
		header: make(http.Header),
		status: http.StatusOK,
		limit:  limit,
		marker: marker,
	}
}

func (c *captureWriter) Header() http.Header {
	return c.header
}

func (c *captureWriter) WriteHeader(code int) {
	if c.wroteHeader {
		return
	}
	c.status = code
	c.wroteHeader = true
	if !isSuccess(code) {
		c.flushHeader()
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.passthrough {
		return c.w.Write(b)
	}
	if int64(c.body.Len())+int64(len(b)) > c.limit {
		c.overflowed = true
		c.flushHeader()
		if _, err := c.w.Write(c.body.Bytes()); err != nil {
			return 0, err
		}
		c.body.Reset()
		return c.w.Write(b)
	}
	return c.body.Write(b)
}

// Flush implements http.Flusher. Buffered responses are not flushed early.
func (c *captureWriter) Flush() {
	if !c.passthrough {
		return
	}
	if f, ok := c.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (c *captureWriter) flushHeader() {
	if c.passthrough {
		return
	}
	c.passthrough = true
	dst := c.w.Header()
	for k, v := range c.header {
		dst[k] = v
	}
	dst.Set(c.marker, string(ResultMiss))
	c.w.WriteHeader(c.status)
}

// finish emits a fully buffered response.
func (c *captureWriter) finish() {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.passthrough {
		return
	}
	c.flushHeader()
	c.w.Write(c.body.Bytes())
}

func (c *captureWriter) storable() bool {
	return !c.overflowed && isSuccess(c.status)
}
