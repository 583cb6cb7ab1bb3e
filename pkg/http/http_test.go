package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "rentavail/pkg/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation keeps details",
			err:        apperrors.Validation("invalid schedule", map[string]any{"interval": "must be at least 1"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeValidation,
			wantMsg:    "invalid schedule",
		},
		{
			name:       "not found",
			err:        apperrors.NotFound("Availability"),
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.CodeNotFound,
			wantMsg:    "Availability not found",
		},
		{
			name:       "plain error is hidden",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.CodeInternal,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body.Code != tt.wantCode || body.Message != tt.wantMsg {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name     string
		body     string
		limit    int64
		wantErr  bool
		wantCode string
	}{
		{name: "valid", body: `{"name":"villa"}`},
		{name: "empty", body: ``, wantErr: true, wantCode: apperrors.CodeInvalidInput},
		{name: "unknown field", body: `{"nme":"villa"}`, wantErr: true, wantCode: apperrors.CodeInvalidInput},
		{name: "trailing object", body: `{"name":"a"}{"name":"b"}`, wantErr: true, wantCode: apperrors.CodeInvalidInput},
		{name: "too large", body: `{"name":"` + strings.Repeat("x", 64) + `"}`, limit: 16, wantErr: true, wantCode: apperrors.CodePayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.limit > 0 {
				req.Body = http.MaxBytesReader(httptest.NewRecorder(), req.Body, tt.limit)
			}

			var p payload
			err := DecodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got := apperrors.AsAppError(err).Code; got != tt.wantCode {
					t.Errorf("code = %s, want %s", got, tt.wantCode)
				}
				return
			}
			if p.Name != "villa" {
				t.Errorf("Name = %q", p.Name)
			}
		})
	}
}

func TestQueryDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2024-01-05&bad=05/01/2024", nil)

	if got, err := QueryDate(req, "from", "2024-01-01"); err != nil || got != "2024-01-05" {
		t.Errorf("QueryDate(from) = %q, %v", got, err)
	}
	if got, err := QueryDate(req, "to", "2024-01-01"); err != nil || got != "2024-01-01" {
		t.Errorf("QueryDate(to) fallback = %q, %v", got, err)
	}
	if _, err := QueryDate(req, "bad", ""); err == nil {
		t.Error("expected error for malformed date")
	}
}
