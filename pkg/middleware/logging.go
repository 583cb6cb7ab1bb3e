package middleware

import (
	"net/http"
	"time"

	"rentavail/pkg/logger"
)

// responseWriter records the status and body size for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.written {
		return
	}
	rw.statusCode = statusCode
	rw.written = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.WriteHeader(http.StatusOK)
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// RequestLogging assigns the request id, echoes it in X-Request-ID and logs
// one completion line per request: Error for 5xx, Warn for 4xx.
func RequestLogging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := requestID(r)

			r = r.WithContext(WithRequestID(r.Context(), id))
			w.Header().Set(RequestIDHeader, id)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			attrs := []any{
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"bytes", rw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				log.Error("HTTP request failed", attrs...)
			case rw.statusCode >= http.StatusBadRequest:
				log.Warn("HTTP request rejected", attrs...)
			default:
				log.Info("HTTP request completed", attrs...)
			}
		})
	}
}
