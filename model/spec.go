package model

import (
	"fmt"
	"time"
)

// RatePolicy is the default admission policy for a model: at most
// Requests calls within each Window. Zero Requests means unlimited.
type RatePolicy struct {
	// Requests is the number of calls admitted per window. 0 = unlimited.
	Requests int `json:"requests" yaml:"requests" toml:"requests"`

	// Window is the fixed window over which Requests applies.
	Window time.Duration `json:"window" yaml:"window" toml:"window"`

	// MaxWait bounds how long a caller may wait for capacity.
	// 0 means wait indefinitely (until the context is cancelled).
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
}

// Unlimited reports whether the policy admits everything.
func (p RatePolicy) Unlimited() bool {
	return p.Requests <= 0 || p.Window <= 0
}

// Spec identifies one routable model: provider, model identifier,
// pricing, and rate-limit policy. A Spec is immutable once registered.
type Spec struct {
	// Name is the registry key callers route by (e.g., "sonnet",
	// "default", "openrouter/anthropic/claude-sonnet-4.5").
	Name string `json:"name" yaml:"name" toml:"name"`

	// Provider names the adapter that serves this model.
	Provider string `json:"provider" yaml:"provider" toml:"provider"`

	// Model is the provider-specific model identifier sent on the wire.
	Model string `json:"model" yaml:"model" toml:"model"`

	// Pricing is the per-call pricing used for cost accounting.
	Pricing Pricing `json:"pricing" yaml:"pricing" toml:"pricing"`

	// Rate is the default admission policy for this model.
	Rate RatePolicy `json:"rate" yaml:"rate" toml:"rate"`

	// ContextWindow is the model's context size in tokens. 0 = unknown.
	ContextWindow int `json:"context_window" yaml:"context_window" toml:"context_window"`

	// BilledOnFailure marks providers that charge for failed-but-processed
	// requests; failed attempts' usage then counts toward spend.
	BilledOnFailure bool `json:"billed_on_failure" yaml:"billed_on_failure" toml:"billed_on_failure"`
}

// Validate checks that the spec is complete enough to register.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("spec name is required")
	}
	if s.Provider == "" {
		return fmt.Errorf("spec %q: provider is required", s.Name)
	}
	if s.Model == "" {
		return fmt.Errorf("spec %q: model is required", s.Name)
	}
	if s.Rate.Requests < 0 {
		return fmt.Errorf("spec %q: rate.requests must be >= 0", s.Name)
	}
	if s.Rate.Window < 0 || s.Rate.MaxWait < 0 {
		return fmt.Errorf("spec %q: rate durations must be >= 0", s.Name)
	}
	return nil
}
