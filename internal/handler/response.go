// Package handler adapts the services to HTTP.
//
// Handlers decode the request, take the caller identity that the auth
// middleware put in the context, call exactly one service operation and
// encode the result. They hold no state of their own.
package handler

// RESPONSE HELPERS:
// Every error response from the API has the same shape:
//   {"error": "not_found", "message": "palette not found with id abc123"}
// Validation errors also name the offending field:
//   {"error": "validation_error", "message": "...", "field": "maxSlots"}

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/block-palettes/internal/apperror"
)

// maxBodyBytes caps request bodies. The largest legitimate body is a
// palette patch with a 500-character description.
const maxBodyBytes = 64 << 10

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends data as JSON with the given status code. A nil data
// writes the JSON literal null, which is how "not found" reads are
// answered.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// statusByCode maps apperror wire codes to HTTP status codes.
var statusByCode = map[string]int{
	apperror.CodeValidation:      http.StatusBadRequest,
	apperror.CodeUnauthenticated: http.StatusUnauthorized,
	apperror.CodeForbidden:       http.StatusForbidden,
	apperror.CodeNotFound:        http.StatusNotFound,
	apperror.CodeConflict:        http.StatusConflict,
}

// writeError maps a domain error to a status code and sends it.
//
// The wrap chain is searched, so a service error like
// fmt.Errorf("...: %w", apperror.NotFound(...)) still maps to 404.
// Anything outside the taxonomy is a 500 with a generic message; the raw
// error may contain SQL or file paths and never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	code := apperror.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   apperror.CodeInternal,
			Message: "An internal error occurred",
		})
		return
	}

	appErr := apperror.As(err)
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields and trailing data are rejected with a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body",
				fmt.Sprintf("request body must be %d bytes or less", maxErr.Limit))
		default:
			return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
		}
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

// logFailure logs errors that end up as 500s. Expected domain errors are
// left to the request logger.
func logFailure(logger *slog.Logger, op string, err error) {
	if apperror.Code(err) != apperror.CodeInternal {
		return
	}
	logger.Error("request failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}
