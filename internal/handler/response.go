package handler

// Every error leaves the API in the same shape:
//
//	{"error": "not_found", "message": "user not found with id abc123"}
//
// Validation errors also carry the offending field.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/apperror"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable type, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending input, for validation errors
}

// MessageResponse is the body of mutations that only confirm success.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sets the content type and status, then encodes data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all that is left is to log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its status code. Server-side failures
// are logged with their full chain and answered with a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, errorType := classify(err)

	resp := ErrorResponse{
		Error:   errorType,
		Message: "An internal error occurred",
	}

	var appErr *apperror.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, resp)
}

// classify checks ErrUnavailable before ErrConflict: a write that lost too
// many version races is reported as retryable, not as a client conflict.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a size-capped JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "request body is too large")
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
