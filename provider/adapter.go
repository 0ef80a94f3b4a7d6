// Package provider defines the boundary between the broker and LLM vendors.
//
// An Adapter performs the actual network call to one provider and returns
// either a normalized Response or a classified error. Adapters are injected
// capabilities: this package defines the contract and a registry, not any
// vendor SDK. Errors crossing this boundary carry a classification Kind
// (rate-limited, retryable, fatal) that drives retry behavior upstream.
//
// # Usage
//
// Register an adapter factory, then construct clients by name:
//
//	provider.Register("openrouter", func(cfg provider.Config) (provider.Adapter, error) {
//	    return newOpenRouterAdapter(cfg)
//	})
//
//	adapter, err := provider.New("openrouter", provider.FromEnv())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Close()
//
// For tests and inline use, Func wraps a plain function as an Adapter.
package provider

import "context"

// Adapter is the unified interface to one LLM vendor.
// Implementations must be safe for concurrent use.
type Adapter interface {
	// Send performs a single completion call. The context controls
	// cancellation and per-attempt timeouts. Errors should be returned
	// as *Error so callers can classify them; unclassified errors are
	// treated as fatal.
	Send(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name (e.g., "openrouter", "anthropic").
	Name() string

	// Close releases any resources held by the adapter.
	Close() error
}

// Func adapts a plain function to the Adapter interface.
// Useful for tests and small inline adapters.
type Func func(ctx context.Context, req Request) (*Response, error)

// Send calls the wrapped function.
func (f Func) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Name returns "func".
func (f Func) Name() string { return "func" }

// Close is a no-op.
func (f Func) Close() error { return nil }
