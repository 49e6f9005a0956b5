package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wudi/linkpreview/internal/cache"
)

// AdminHandler returns the admin API: health, Prometheus metrics and cache
// statistics. It is never cached.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)

	metricsPath := s.config.Admin.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	mux.Handle(metricsPath, s.metrics.Handler())

	mux.HandleFunc("/cache", s.handleCache)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
	})
}

// CacheStatus is the body of the admin /cache endpoint.
type CacheStatus struct {
	Enabled     bool                    `json:"enabled"`
	TTL         string                  `json:"ttl,omitempty"`
	Store       *cache.StoreStats       `json:"store,omitempty"`
	Interceptor *cache.InterceptorStats `json:"interceptor,omitempty"`
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	status := CacheStatus{Enabled: s.interceptor != nil}
	if s.interceptor != nil {
		st := s.store.Stats()
		ist := s.interceptor.Stats()
		status.TTL = s.config.Cache.TTL.String()
		status.Store = &st
		status.Interceptor = &ist
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
