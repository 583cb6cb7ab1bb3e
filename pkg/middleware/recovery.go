package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "rentavail/pkg/errors"
	httputil "rentavail/pkg/http"
	"rentavail/pkg/logger"
)

// Recovery turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-raised so the server aborts the connection as it would without us.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("Panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				if err := httputil.WriteError(w, apperrors.Internal("panic", fmt.Errorf("%v", rec))); err != nil {
					log.Error("failed to write error response", "error", err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
