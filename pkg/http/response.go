package http

import (
	"encoding/json"
	"net/http"

	apperrors "rentavail/pkg/errors"
)

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

type ListResponse struct {
	Data       any `json:"data"`
	TotalCount int `json:"total_count"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError renders any error as an ErrorResponse. Errors that are not
// AppErrors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)
	resp := appErr.Response()
	if appErr.Code == apperrors.CodeInternal {
		resp.Message = "Internal server error"
		resp.Details = nil
	}
	return WriteJSON(w, appErr.StatusCode(), resp)
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WriteList(w http.ResponseWriter, data any, totalCount int) error {
	return WriteJSON(w, http.StatusOK, ListResponse{
		Data:       data,
		TotalCount: totalCount,
	})
}
