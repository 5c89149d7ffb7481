package mailapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/mailhub/pkg/apperr"
	"github.com/dmitrymomot/mailhub/pkg/logger"
)

// ErrorResponse is the body of every non-2xx admin or validation response.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// ValidationError collects messages per request field.
type ValidationError url.Values

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e))
	for field, messages := range e {
		if len(messages) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", field, messages[0]))
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Unwrap lets callers branch on apperr.ErrValidation.
func (e ValidationError) Unwrap() error { return apperr.ErrValidation }

func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported without their message.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, detail := http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: http.StatusText(http.StatusInternalServerError)}

	var verr ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		detail = &ErrorDetail{Code: "validation_error", Message: "validation failed", Details: verr}
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
		detail = &ErrorDetail{Code: "validation_error", Message: err.Error()}
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
		detail = &ErrorDetail{Code: "not_found", Message: err.Error()}
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
		detail = &ErrorDetail{Code: "conflict", Message: err.Error()}
	default:
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}

	writeJSON(w, status, ErrorResponse{Success: false, Error: detail})
}
