package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rentavail/pkg/dates"
	apperrors "rentavail/pkg/errors"
)

// DecodeJSON reads a single JSON object from the body into dst, rejecting
// unknown fields and trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.PayloadTooLarge(maxErr.Limit)
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("request body is empty")
		default:
			return apperrors.InvalidInput(fmt.Sprintf("invalid JSON body: %v", err))
		}
	}
	if dec.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}

// QueryDate returns the ISO date in the named query parameter, or fallback
// when the parameter is absent.
func QueryDate(r *http.Request, key, fallback string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	if !dates.IsDate(v) {
		return "", apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter %q: want YYYY-MM-DD", key, v))
	}
	return v, nil
}

func QueryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
