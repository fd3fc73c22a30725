package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrPollNotFound                = errors.New("poll not found")
	ErrInvalidPollID               = errors.New("invalid poll id")
	ErrPollClosed                  = errors.New("poll is not active")
	ErrPollExpired                 = errors.New("poll has expired")
	ErrInvalidOption               = errors.New("invalid option for this poll")
	ErrInvalidExpiryDate           = errors.New("invalid expiry date format")
	ErrAlreadyVoted                = errors.New("voter has already voted on this poll")
	ErrUnauthorized                = errors.New("only the poll creator can close the poll")
	ErrInvalidIdentity             = errors.New("invalid wallet address")
	ErrRateLimited                 = errors.New("vote rate limit exceeded")
	ErrReplenishUnavailable        = errors.New("automatic funding is unavailable on this network")
	ErrFundingAttemptsExceeded     = errors.New("maximum funding attempts exceeded")
	ErrMissingCustodyKey           = errors.New("custody private key is required on this network")
	ErrInvalidTransactionSignature = errors.New("invalid transaction signature")
	ErrBadRequest                  = errors.New("malformed request body")
	ErrInternal                    = errors.New("internal server error")
)

// ValidationError carries every violated input constraint, not just the first.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, ", ")
}

// RateLimitError is returned when a voter has used the whole budget of the
// current window. It matches ErrRateLimited with errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %d seconds", ErrRateLimited, e.RetryAfterSeconds())
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds rounds up so a client never retries a moment too early.
func (e *RateLimitError) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(e.RetryAfter.Seconds()))
}
