package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smgk/agency-erp/internal/apperr"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// WriteError maps service-layer error kinds onto HTTP statuses.
func WriteError(w http.ResponseWriter, err error) {
	var (
		notFound   *apperr.NotFoundError
		validation *apperr.ValidationError
		conflict   *apperr.ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		JSONError(w, http.StatusNotFound, err.Error(), nil)
	case errors.As(err, &validation):
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &conflict):
		JSONError(w, http.StatusConflict, err.Error(), nil)
	default:
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
