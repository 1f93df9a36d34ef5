// Package respond writes JSON responses and the API's error envelope.
// Errors carry a human-readable detail plus a stable machine code:
// {"detail": "...", "code": "..."}.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"logistics-news/internal/domain/entity"
)

// Error codes returned in the error envelope.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeRateLimited  = "rate_limited"
	CodeConflict     = "conflict"
	CodeInternal     = "internal_error"
	CodeUnavailable  = "unavailable"
)

// ErrorBody is the error envelope.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already sent; nothing left but to log it.
			slog.Error("response encoding failed",
				slog.Int("status", status),
				slog.String("error", err.Error()))
		}
	}
}

// Error writes the error envelope with the given detail.
func Error(w http.ResponseWriter, status int, code, detail string) {
	JSON(w, status, ErrorBody{Detail: detail, Code: code})
}

// BadRequest writes a 400 with the error's message. Intended for
// validation errors whose text is safe to show.
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, CodeBadRequest, err.Error())
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, what string) {
	Error(w, http.StatusNotFound, CodeNotFound, what+" not found")
}

// Internal logs the error and writes a sanitized 500. Store and
// upstream errors never reach the response body.
func Internal(w http.ResponseWriter, err error) {
	slog.Error("request failed", slog.String("error", err.Error()))
	Error(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}

// FromError maps domain errors onto the envelope: validation errors
// become 400, missing entities 404, anything else a sanitized 500.
func FromError(w http.ResponseWriter, err error) {
	var verr *entity.ValidationError
	switch {
	case errors.As(err, &verr):
		BadRequest(w, verr)
	case errors.Is(err, entity.ErrNotFound):
		Error(w, http.StatusNotFound, CodeNotFound, "resource not found")
	default:
		Internal(w, err)
	}
}
