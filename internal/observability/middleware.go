package observability

import (
	"net/http"
	"strings"
	"time"
)

// Middleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - modelgate_requests_total: per request with method, status class, and route labels
//   - modelgate_request_duration_seconds: request duration with method and route labels
//
// The streaming gauge is managed by the handlers that actually relay
// streams, since only they know whether a call streamed.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := routeLabel(r.URL.Path)
		RequestsTotal.WithLabelValues(r.Method, statusClass(sw.status), route).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel groups request paths into a bounded label set.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/chat/completions"):
		return "completions"
	case strings.HasPrefix(path, "/passthrough/"):
		return "passthrough"
	case strings.HasPrefix(path, "/api/admin/"):
		return "admin"
	case path == "/api/health" || path == "/health":
		return "health"
	case path == "/metrics":
		return "metrics"
	default:
		return "other"
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
// Without this, streams relayed through the middleware would buffer.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
