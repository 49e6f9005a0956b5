package server

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/errors"
	"github.com/wudi/linkpreview/internal/logging"
	"github.com/wudi/linkpreview/internal/middleware"
	"github.com/wudi/linkpreview/internal/preview"
)

const (
	pathExtract       = "/api/v1/extract"
	pathImage         = "/api/v1/image"
	pathLegacyExtract = "/v1/extract"
	pathLegacyImage   = "/v1/image"
)

var routePaths = []string{pathExtract, pathImage, pathLegacyExtract, pathLegacyImage}

func (s *Server) router() http.Handler {
	r := httprouter.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = true

	r.GET(pathExtract, s.handleExtract)
	r.GET(pathLegacyExtract, s.handleLegacyExtract)
	r.GET(pathImage, s.handleImage)
	r.GET(pathLegacyImage, s.handleImage)

	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, errors.ErrNotFound)
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, errors.ErrMethodNotAllowed)
	})
	return r
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, ok := s.extract(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, preview.NewResponse(p))
}

// handleLegacyExtract serves the flat legacy shape. An incomplete preview is
// still a 200; only the body's error field reports it.
func (s *Server) handleLegacyExtract(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, ok := s.extract(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.ToLegacy())
}

func (s *Server) extract(w http.ResponseWriter, r *http.Request) (preview.LinkPreview, bool) {
	target := r.URL.Query().Get("url")
	if target == "" {
		s.metrics.RecordOperation("extract", errors.KindInvalidInput.String())
		writeError(w, r, errors.ErrInvalidURL.WithDetails("missing url parameter"))
		return preview.LinkPreview{}, false
	}

	p, err := s.extractor.Extract(r.Context(), target)
	if err != nil {
		s.metrics.RecordOperation("extract", errors.As(err).Kind.String())
		writeError(w, r, err)
		return preview.LinkPreview{}, false
	}
	s.metrics.RecordOperation("extract", "ok")
	return p, true
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	target := r.URL.Query().Get("url")
	if target == "" {
		s.metrics.RecordOperation("image", errors.KindInvalidInput.String())
		writeError(w, r, errors.ErrInvalidURL.WithDetails("missing url parameter"))
		return
	}

	headers, body, err := s.images.Proxy(r.Context(), target)
	if err != nil {
		s.metrics.RecordOperation("image", errors.As(err).Kind.String())
		writeError(w, r, err)
		return
	}
	s.metrics.RecordOperation("image", "ok")

	dst := w.Header()
	for k, v := range headers {
		dst[k] = v
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps err to its AppError and writes it. Server-side failures
// are logged at error level, client-side ones at debug.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.As(err)

	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(r)),
		zap.String("path", r.URL.Path),
		zap.String("kind", appErr.Kind.String()),
		zap.Error(err),
	}
	if appErr.Code >= http.StatusInternalServerError {
		logging.Error("Request failed", fields...)
	} else {
		logging.Debug("Request rejected", fields...)
	}

	if id := middleware.GetRequestID(r); id != "" {
		appErr = appErr.WithRequestID(id)
	}
	appErr.WriteJSON(w)
}
