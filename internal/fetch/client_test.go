package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const page = "<html><head><meta property=\"og:title\" content=\"T\"></head></html>"

func encodeBody(t *testing.T, encoding, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		w := gzip.NewWriter(&buf)
		w.Write([]byte(s))
		w.Close()
	case "br":
		w := brotli.NewWriter(&buf)
		w.Write([]byte(s))
		w.Close()
	case "zstd":
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(s))
		w.Close()
	default:
		buf.WriteString(s)
	}
	return buf.Bytes()
}

func TestClientDecodesContentEncoding(t *testing.T) {
	for _, enc := range []string{"", "gzip", "br", "zstd"} {
		t.Run("encoding="+enc, func(t *testing.T) {
			body := encodeBody(t, enc, page)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if enc != "" {
					w.Header().Set("Content-Encoding", enc)
				}
				w.Write(body)
			}))
			defer srv.Close()

			got, err := New(Options{}).Get(context.Background(), srv.URL)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != page {
				t.Errorf("body = %q", got)
			}
		})
	}
}

func TestClientSendsHeaders(t *testing.T) {
	var ua, ae string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		ae = r.Header.Get("Accept-Encoding")
	}))
	defer srv.Close()

	if _, err := New(Options{UserAgent: "testbot/1.0"}).Get(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if ua != "testbot/1.0" {
		t.Errorf("User-Agent = %q", ua)
	}
	if ae != AcceptEncoding {
		t.Errorf("Accept-Encoding = %q", ae)
	}
}

func TestClientNonSuccessStatus(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Options{}).Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
	if calls != 1 {
		t.Errorf("upstream called %d times, want exactly 1", calls)
	}
}

func TestClientSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	if _, err := New(Options{MaxBytes: 32}).Get(context.Background(), srv.URL); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := New(Options{MaxBytes: 64}).Get(context.Background(), srv.URL); err != nil {
		t.Errorf("body at the limit should pass: %v", err)
	}
}

func TestClientContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := New(Options{}).Get(ctx, srv.URL); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	if _, _, err := Decode(strings.NewReader("x"), "compress"); err == nil {
		t.Error("expected error for unsupported encoding")
	}
}

func TestDecodeBadGzip(t *testing.T) {
	if _, _, err := Decode(strings.NewReader("not gzip"), "gzip"); err == nil {
		t.Error("expected error for corrupt gzip header")
	}
}
