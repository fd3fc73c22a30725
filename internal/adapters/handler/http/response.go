package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.ErrBadRequest
	}
	return nil
}

// decodeOptionalJSON accepts an empty body and leaves v untouched.
func decodeOptionalJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrBadRequest
	}
	return nil
}

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{domain.ErrBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
	{domain.ErrInvalidPollID, http.StatusBadRequest, "INVALID_POLL_ID"},
	{domain.ErrInvalidIdentity, http.StatusBadRequest, "INVALID_IDENTITY"},
	{domain.ErrInvalidTransactionSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
	{domain.ErrPollNotFound, http.StatusNotFound, "POLL_NOT_FOUND"},
	{domain.ErrPollClosed, http.StatusBadRequest, "POLL_CLOSED"},
	{domain.ErrPollExpired, http.StatusBadRequest, "POLL_EXPIRED"},
	{domain.ErrInvalidOption, http.StatusBadRequest, "INVALID_OPTION"},
	{domain.ErrAlreadyVoted, http.StatusBadRequest, "ALREADY_VOTED"},
	{domain.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
	{domain.ErrReplenishUnavailable, http.StatusBadRequest, "REPLENISH_UNAVAILABLE"},
	{domain.ErrFundingAttemptsExceeded, http.StatusTooManyRequests, "FUNDING_ATTEMPTS_EXCEEDED"},
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "Validation failed",
			Code:   "VALIDATION_FAILED",
			Errors: verr.Errors,
		})
		return
	}

	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds()))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error: err.Error(),
			Code:  "RATE_LIMITED",
		})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeJSON(w, m.status, errorResponse{Error: m.target.Error(), Code: m.code})
			return
		}
	}

	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: domain.ErrInternal.Error(),
		Code:  "INTERNAL",
	})
}
