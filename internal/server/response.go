package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/djq/internal/shared"
)

const maxBodyBytes = 64 << 10

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// JSONResponse writes data as a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, ErrorBody{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Retryable: statusCode == http.StatusServiceUnavailable || statusCode == http.StatusTooManyRequests,
	})
}

// WriteError writes err with the status code chosen by [StatusCode].
func WriteError(w http.ResponseWriter, err error) {
	ErrorResponse(w, StatusCode(err), err.Error())
}

// StatusCode maps a lifecycle or store error to an HTTP status.
//
// NotFound is checked before InvalidOperation so a reorder of a missing request reports 404.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidTransition), errors.Is(err, shared.ErrInvalidOperation), errors.Is(err, shared.ErrRecordBusy):
		return http.StatusConflict
	case errors.Is(err, shared.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ParseJSONBody decodes a bounded request body into v, rejecting unknown fields.
func ParseJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", shared.ErrInvalidInput, err)
	}
	return nil
}
