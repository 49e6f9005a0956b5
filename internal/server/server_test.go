package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wudi/linkpreview/internal/config"
)

const beatlesPage = `<html>
<head>
    <meta charset="utf-8">
    <meta property="og:title" content="The Beatles - Hey Jude">
    <meta property="og:type" content="music.song">
    <meta property="og:url" content="https://music.apple.com/us/album/hey-jude/1435546686">
    <meta property="og:image" content="https://is3-ssl.mzstatic.com/image/170x170bb.jpg">
</head>
<body></body>
</html>`

// upstream serves fixed pages and counts hits. Page paths carry a file
// extension so local URLs pass the URL shape check.
func upstream(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/beatles.html", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, beatlesPage)
	})
	mux.HandleFunc("/empty.html", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, "<html><head><title>nothing</title></head><body></body></html>")
	})
	mux.HandleFunc("/broken.html", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	})
	mux.HandleFunc("/photo.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		img := image.NewRGBA(image.Rect(0, 0, 4, 4))
		img.Set(1, 1, color.RGBA{R: 255, A: 255})
		png.Encode(w, img)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Preview.BaseURL = "https://cards.example.com"
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func q(target string) string {
	return url.QueryEscape(target)
}

func TestExtractRouteCaches(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, nil)

	target := "/api/v1/extract?url=" + q(up.URL+"/beatles.html")

	first := get(s.Handler(), target)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", first.Code, first.Body.String())
	}
	if first.Header().Get("X-Gizo-Cache") != "MISS" {
		t.Errorf("first marker = %q", first.Header().Get("X-Gizo-Cache"))
	}

	body := first.Body.Bytes()
	if !gjson.ValidBytes(body) {
		t.Fatalf("bad json: %s", body)
	}
	og := gjson.GetBytes(body, "metadata.OpenGraph")
	if og.Get("title").String() != "The Beatles - Hey Jude" || og.Get("url").String() != "https://music.apple.com/us/album/hey-jude/1435546686" {
		t.Errorf("unexpected preview %s", og.Raw)
	}
	if og.Get("og_type").String() != "music.song" {
		t.Errorf("og_type = %s", og.Get("og_type").Raw)
	}
	if image := og.Get("image").String(); !strings.HasPrefix(image, "https://cards.example.com/v1/image?url=https%3A%2F%2F") {
		t.Errorf("image = %q", image)
	}
	for _, field := range []string{"video", "audio", "description", "site_name"} {
		if v := og.Get(field); !v.Exists() || v.Type != gjson.Null {
			t.Errorf("%s should be present and null, got %s", field, v.Raw)
		}
	}

	second := get(s.Handler(), target)
	if second.Header().Get("X-Gizo-Cache") != "HIT" {
		t.Errorf("second marker = %q", second.Header().Get("X-Gizo-Cache"))
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("hit body differs from miss body")
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Errorf("hit content type = %q", second.Header().Get("Content-Type"))
	}
	if hits.Load() != 1 {
		t.Errorf("upstream fetched %d times, want 1", hits.Load())
	}
	if second.Header().Get("X-Request-ID") == "" || second.Header().Get("X-Request-ID") == first.Header().Get("X-Request-ID") {
		t.Error("each response should carry its own request id")
	}
}

func TestLegacyExtract(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, nil)

	rec := get(s.Handler(), "/v1/extract?url="+q(up.URL+"/beatles.html"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var legacy map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &legacy); err != nil {
		t.Fatal(err)
	}
	if legacy["likely_type"] != "music.song" || legacy["error"] != "" || legacy["description"] != "" {
		t.Errorf("legacy = %v", legacy)
	}

	rec = get(s.Handler(), "/v1/extract?url="+q(up.URL+"/empty.html"))
	if rec.Code != http.StatusOK {
		t.Fatalf("incomplete preview status = %d", rec.Code)
	}
	legacy = nil
	json.Unmarshal(rec.Body.Bytes(), &legacy)
	if legacy["error"] != "Unable to generate link preview" || legacy["title"] != "" {
		t.Errorf("legacy error shape = %v", legacy)
	}
}

func TestExtractErrors(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		target  string
		status  int
		message string
	}{
		{"missing url", "/api/v1/extract", http.StatusBadRequest, "Invalid URL"},
		{"not a url", "/api/v1/extract?url=nope", http.StatusBadRequest, "Invalid URL"},
		{"upstream failure", "/api/v1/extract?url=" + q(up.URL+"/broken.html"), http.StatusBadRequest, "Failed to fetch URL"},
		{"legacy upstream failure", "/v1/extract?url=" + q(up.URL+"/broken.html"), http.StatusBadRequest, "Failed to fetch URL"},
		{"unknown route", "/v2/whatever", http.StatusNotFound, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				rec := get(s.Handler(), tt.target)
				if rec.Code != tt.status {
					t.Fatalf("status = %d, want %d", rec.Code, tt.status)
				}
				if rec.Header().Get("X-Gizo-Cache") != "MISS" {
					t.Errorf("errors are never served from cache, marker = %q", rec.Header().Get("X-Gizo-Cache"))
				}
				var body struct {
					Code      int    `json:"code"`
					Message   string `json:"message"`
					RequestID string `json:"request_id"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("error body is not JSON: %s", rec.Body.String())
				}
				if body.Code != tt.status || body.Message != tt.message || body.RequestID == "" {
					t.Errorf("body = %+v", body)
				}
			}
		})
	}
}

func TestNonGETBypassesCache(t *testing.T) {
	s := newTestServer(t, nil)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/extract?url=example.com", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
		if got := rec.Header().Get("X-Gizo-Cache"); got != "" {
			t.Errorf("POST carried a cache marker %q", got)
		}
	}
	if st := s.store.Stats(); st.Size != 0 {
		t.Errorf("POST populated the store: %+v", st)
	}
}

func TestImageRoute(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, nil)

	for _, path := range []string{"/v1/image", "/api/v1/image"} {
		rec := get(s.Handler(), path+"?url="+q(up.URL+"/photo.png"))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "image/webp" {
			t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
		}
		if rec.Header().Get("Cache-Control") != "public, max-age=31536000" {
			t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
		}
		b := rec.Body.Bytes()
		if len(b) < 12 || string(b[:4]) != "RIFF" || string(b[8:12]) != "WEBP" {
			t.Errorf("body is not webp")
		}
	}

	rec := get(s.Handler(), "/v1/image?url="+q(up.URL+"/photo.png"))
	if rec.Header().Get("X-Gizo-Cache") != "HIT" {
		t.Errorf("repeat image marker = %q", rec.Header().Get("X-Gizo-Cache"))
	}
	if hits.Load() != 2 {
		t.Errorf("upstream fetched %d times, want 2 (one per route)", hits.Load())
	}
}

func TestImageRouteErrors(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, nil)

	if rec := get(s.Handler(), "/v1/image?url="+q(up.URL+"/beatles.html")); rec.Code != http.StatusInternalServerError {
		t.Errorf("non-image status = %d, want 500", rec.Code)
	}
	if rec := get(s.Handler(), "/v1/image"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want 400", rec.Code)
	}
}

func TestCacheDisabled(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, func(c *config.Config) { c.Cache.Enabled = false })

	target := "/api/v1/extract?url=" + q(up.URL+"/beatles.html")
	for i := 0; i < 2; i++ {
		if got := get(s.Handler(), target).Header().Get("X-Gizo-Cache"); got != "" {
			t.Errorf("marker %q with cache disabled", got)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("upstream fetched %d times, want 2", hits.Load())
	}
}

func TestBoundedStore(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, func(c *config.Config) { c.Cache.MaxEntries = 1 })

	if s.memory != nil {
		t.Fatal("max_entries should select the LRU store")
	}
	a := "/api/v1/extract?url=" + q(up.URL+"/beatles.html")
	b := "/api/v1/extract?url=" + q(up.URL+"/empty.html")
	get(s.Handler(), a)
	get(s.Handler(), b)
	if got := get(s.Handler(), a).Header().Get("X-Gizo-Cache"); got != "MISS" {
		t.Errorf("evicted entry marker = %q, want MISS", got)
	}
	if st := s.store.Stats(); st.MaxSize != 1 || st.Evictions == 0 {
		t.Errorf("store stats = %+v", st)
	}
}

func TestAdminEndpoints(t *testing.T) {
	var hits atomic.Int64
	up := upstream(t, &hits)
	s := newTestServer(t, nil)
	target := "/api/v1/extract?url=" + q(up.URL+"/beatles.html")
	get(s.Handler(), target)
	get(s.Handler(), target)

	admin := s.AdminHandler()

	rec := get(admin, "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("/health = %d %s", rec.Code, rec.Body.String())
	}

	rec = get(admin, "/cache")
	var status CacheStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if !status.Enabled || status.Store == nil || status.Store.Size != 1 {
		t.Errorf("/cache = %s", rec.Body.String())
	}
	if status.Interceptor.Hits != 1 || status.Interceptor.Misses != 1 {
		t.Errorf("interceptor stats = %+v", status.Interceptor)
	}

	body := get(admin, "/metrics").Body.String()
	for _, want := range []string{
		`linkpreview_cache_results_total{result="HIT"} 1`,
		`linkpreview_cache_results_total{result="MISS"} 1`,
		`linkpreview_operations_total{operation="extract",outcome="ok"} 1`,
		`linkpreview_cache_entries 1`,
		`route="/api/v1/extract"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStartShutdown(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.Address = "127.0.0.1:0"
		c.Admin.Address = "127.0.0.1:0"
		c.Cache.SweepInterval = 10 * time.Millisecond
	})

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
