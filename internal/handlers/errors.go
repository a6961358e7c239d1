package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docsync-ai/internal/apperr"
	"docsync-ai/internal/contextutil"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
	// Code is a stable machine-readable error code such as "not_ready".
	Code string `json:"code,omitempty"`
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch apperr.Code(err) {
	case "invalid_input", "unsupported_type":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "not_ready", "config_error", "root_unavailable":
		return http.StatusConflict
	case "provider_error":
		return http.StatusBadGateway
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
}

// writeAppError logs err and writes the mapped error response. Internal
// errors are not echoed to the client.
func writeAppError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	status := statusFor(err)
	code := apperr.Code(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logger.ErrorContext(ctx, "request failed", "error", err)
		msg = http.StatusText(status)
	} else {
		logger.WarnContext(ctx, "request rejected", "status", status, "code", code, "error", err)
	}
	writeError(w, status, code, msg)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// folderID parses the {id} route parameter.
func folderID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &apperr.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apperr.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}
