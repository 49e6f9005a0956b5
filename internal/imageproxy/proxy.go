// Package imageproxy fetches remote images and re-encodes them into one
// compact format with long-lived caching headers.
package imageproxy

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/errors"
	"github.com/wudi/linkpreview/internal/logging"
)

// CacheControl is sent with every transcoded image.
const CacheControl = "public, max-age=31536000"

// Fetcher retrieves image bytes.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Service is the image proxy.
type Service struct {
	fetcher    Fetcher
	transcoder Transcoder
}

// New creates a Service. A nil transcoder selects WebPTranscoder.
func New(fetcher Fetcher, transcoder Transcoder) *Service {
	if transcoder == nil {
		transcoder = WebPTranscoder{}
	}
	return &Service{fetcher: fetcher, transcoder: transcoder}
}

// Proxy fetches rawURL once and transcodes it. Fetch failures map to
// errors.ErrFetchFailed, decode and encode failures to
// errors.ErrImageProcessing.
func (s *Service) Proxy(ctx context.Context, rawURL string) (http.Header, []byte, error) {
	src, err := s.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, nil, errors.ErrFetchFailed.Wrap(err)
	}

	out, err := s.transcoder.Transcode(src)
	if err != nil {
		logging.Debug("Image transcode failed",
			zap.String("url", rawURL),
			zap.Int("bytes", len(src)),
			zap.Error(err),
		)
		return nil, nil, errors.ErrImageProcessing.Wrap(err)
	}

	h := make(http.Header, 2)
	h.Set("Content-Type", s.transcoder.ContentType())
	h.Set("Cache-Control", CacheControl)
	return h, out, nil
}
