package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder receives one observation per completed request.
type RequestRecorder interface {
	RecordRequest(route, method string, statusCode int, duration time.Duration)
}

// Metrics records request counts and durations. routes lists the paths
// reported under their own label; any other path is reported as "other" to
// bound label cardinality.
func Metrics(rec RequestRecorder, routes ...string) Middleware {
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lrw, r)

			route := r.URL.Path
			if !known[route] {
				route = "other"
			}
			rec.RecordRequest(route, r.Method, lrw.status, time.Since(start))
		})
	}
}
