package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Kind classifies a provider error for retry purposes.
type Kind int

// Classification kinds. Fatal is the zero value so an unclassified
// *Error is never retried by accident.
const (
	// KindFatal covers permanent failures: bad requests, auth failures,
	// content-policy rejections. Never retried.
	KindFatal Kind = iota

	// KindRateLimited means the provider rejected the call for capacity
	// reasons. Always worth retrying, honoring any retry-after hint.
	KindRateLimited

	// KindRetryable covers transient failures: timeouts, connection
	// errors, 5xx-equivalents. Retried up to the policy's attempt limit.
	KindRetryable
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors for provider operations.
var (
	// ErrUnknownProvider indicates the requested provider is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrRateLimited indicates the request was rate limited by the provider.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the provider service is unavailable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates the request timed out.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidRequest indicates the request is malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAuth indicates missing or rejected credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrContentFiltered indicates the request was rejected by the
	// provider's content policy.
	ErrContentFiltered = errors.New("content policy rejection")

	// ErrContextTooLong indicates the input exceeds the model's context window.
	ErrContextTooLong = errors.New("context exceeds maximum length")
)

// Error wraps provider errors with classification and context.
type Error struct {
	Provider   string        // Provider name ("openrouter", "anthropic", ...)
	Op         string        // Operation that failed ("send")
	Kind       Kind          // Classification driving retry behavior
	RetryAfter time.Duration // Provider-supplied backoff hint, 0 if none
	Err        error         // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified provider error.
func NewError(provider, op string, kind Kind, err error) *Error {
	return &Error{Provider: provider, Op: op, Kind: kind, Err: err}
}

// Classify maps an error to its retry classification.
// A *Error's explicit Kind wins; otherwise known sentinels and network
// timeouts are mapped, and anything unrecognized is treated as fatal.
func Classify(err error) Kind {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Kind
	}

	if errors.Is(err, ErrRateLimited) {
		return KindRateLimited
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return KindRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindRetryable
	}

	return KindFatal
}

// RetryAfterHint extracts the provider-supplied retry-after hint, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var provErr *Error
	if errors.As(err, &provErr) && provErr.RetryAfter > 0 {
		return provErr.RetryAfter, true
	}
	return 0, false
}

// IsRetryable reports whether an error is worth retrying at all
// (rate-limited or transient).
func IsRetryable(err error) bool {
	return Classify(err) != KindFatal
}
