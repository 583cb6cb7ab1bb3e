package middleware

import (
	"mime"
	"net/http"

	apperrors "rentavail/pkg/errors"
	httputil "rentavail/pkg/http"
	"rentavail/pkg/logger"
)

// ContentTypeValidation requires application/json on requests that carry a
// body.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiresContentType(r.Method) {
				contentType := extractContentType(r.Header.Get("Content-Type"))

				if contentType != "application/json" {
					log.Warn("Invalid Content-Type header",
						"request_id", RequestIDFromContext(r.Context()),
						"content_type", contentType,
						"path", r.URL.Path,
						"method", r.Method,
					)
					if err := httputil.WriteError(w, apperrors.UnsupportedMediaType("Content-Type must be application/json")); err != nil {
						log.Error("failed to write error response", "error", err)
					}
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requiresContentType(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func extractContentType(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mediaType
}
