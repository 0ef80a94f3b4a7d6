// Package ratelimit provides per-model admission control.
//
// A Limiter tracks one fixed-window counter per model, shared by all
// concurrent callers targeting that model. Acquire suspends the caller
// until the model's window has room, then reserves a slot and returns a
// Permit. A caller that never dispatches its call releases the permit to
// return the unused slot.
//
// Admission is fair-enough rather than strictly FIFO: no caller waits
// longer than one full window beyond the point where capacity exists.
// Unrelated models never contend with each other.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/llmbroker/model"
)

// WaitTimeoutError reports that a caller waited longer than the model's
// configured MaxWait for rate-limit capacity.
type WaitTimeoutError struct {
	Model  string
	Waited time.Duration
}

// Error implements the error interface.
func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("rate limit wait for model %q exceeded %v", e.Model, e.Waited)
}

// Limiter manages per-model rate-limit state.
// The zero value is not usable; call NewLimiter.
type Limiter struct {
	mu     sync.RWMutex
	states map[string]*state

	now func() time.Time
}

// state is the mutable window counter for one model. Guarded by its own
// mutex so unrelated models never contend.
type state struct {
	mu          sync.Mutex
	policy      model.RatePolicy
	windowStart time.Time
	count       int
}

// NewLimiter creates an empty limiter. Per-model state is created lazily
// from each spec's RatePolicy on first acquire; the policy is fixed at
// that point, matching spec immutability.
func NewLimiter() *Limiter {
	return &Limiter{
		states: make(map[string]*state),
		now:    time.Now,
	}
}

// Permit is a reserved rate-limit slot. Callers that dispatch their call
// simply drop the permit; callers that abort before dispatch should call
// Release to return the slot.
type Permit struct {
	s           *state
	windowStart time.Time

	once sync.Once
}

// Release returns the reserved slot if the call was never dispatched and
// the window that granted it is still current. Safe to call multiple
// times and on a nil permit.
func (p *Permit) Release() {
	if p == nil || p.s == nil {
		return
	}
	p.once.Do(func() {
		p.s.mu.Lock()
		defer p.s.mu.Unlock()
		if p.s.windowStart.Equal(p.windowStart) && p.s.count > 0 {
			p.s.count--
		}
	})
}

// Acquire suspends the caller until the model's capacity window has room,
// reserves a slot, and returns a permit. It returns ctx.Err() on
// cancellation and *WaitTimeoutError when the spec's MaxWait is exceeded.
// It never fails on contention alone.
func (l *Limiter) Acquire(ctx context.Context, spec model.Spec) (*Permit, error) {
	if spec.Rate.Unlimited() {
		return &Permit{}, nil
	}

	s := l.stateFor(spec)

	var deadline time.Time
	start := l.now()
	if spec.Rate.MaxWait > 0 {
		deadline = start.Add(spec.Rate.MaxWait)
	}

	for {
		s.mu.Lock()
		now := l.now()
		if now.Sub(s.windowStart) >= s.policy.Window {
			s.windowStart = now
			s.count = 0
		}
		if s.count < s.policy.Requests {
			s.count++
			p := &Permit{s: s, windowStart: s.windowStart}
			s.mu.Unlock()
			return p, nil
		}
		wait := s.windowStart.Add(s.policy.Window).Sub(now)
		s.mu.Unlock()

		if !deadline.IsZero() && now.Add(wait).After(deadline) {
			return nil, &WaitTimeoutError{Model: spec.Name, Waited: spec.Rate.MaxWait}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// stateFor returns the window state for a spec, creating it on first use.
func (l *Limiter) stateFor(spec model.Spec) *state {
	l.mu.RLock()
	s, ok := l.states[spec.Name]
	l.mu.RUnlock()
	if ok {
		return s
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok = l.states[spec.Name]; ok {
		return s
	}
	s = &state{
		policy:      spec.Rate,
		windowStart: l.now(),
	}
	l.states[spec.Name] = s
	return s
}
