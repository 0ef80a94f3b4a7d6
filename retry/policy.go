// Package retry wraps a single logical provider call in bounded retry
// with exponential backoff.
//
// Every attempt acquires a rate-limit permit, performs the call, and
// classifies the outcome. Rate-limited responses are always retried,
// honoring the provider's retry-after hint when present. Transient
// failures are retried up to the policy's attempt limit with jittered
// exponential backoff. Fatal failures are surfaced immediately and never
// retried. Exhausting the attempt limit surfaces *ExhaustedError, which
// is distinct from *FatalError so callers can tell "gave up after
// retries" from "rejected outright".
package retry

import (
	"math/rand"
	"time"
)

// Policy configures bounded retry with exponential backoff.
type Policy struct {
	// MaxAttempts is the total number of attempts for retryable
	// failures, including the first. Must be >= 1.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff. 0 means no cap.
	MaxDelay time.Duration

	// Multiplier grows the delay each retry: delay = base * multiplier^(n-1).
	// Values <= 1 disable growth.
	Multiplier float64

	// Jitter is the random fraction applied to each delay, e.g. 0.25
	// yields delays in [0.75d, 1.25d]. 0 disables jitter.
	Jitter float64
}

// DefaultPolicy returns the standard retry policy: 4 attempts, 500ms
// base delay doubling each retry, capped at 30s, with 25% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Jitter:      0.25,
	}
}

// Delay computes the backoff after the n-th failure (n >= 1).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(p.BaseDelay)
	if p.Multiplier > 1 {
		for i := 1; i < n; i++ {
			d *= p.Multiplier
		}
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d *= 1 + p.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(d)
}

// Validate checks if the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errMaxAttempts
	}
	return nil
}
