// Package budget provides scoped, hard-stop cost accounting.
//
// A Budget is a named accounting scope with a spend ceiling. Scopes nest:
// a charge against a child also attributes to every enclosing ancestor,
// and is rejected atomically if it would push any budget in the chain
// over its ceiling. Totals are exact fixed-point amounts (model.Cost) and
// are monotonically non-decreasing within an open scope.
//
// The intended shape is scoped acquisition:
//
//	b := budget.Open("tournament", model.USD(25))
//	defer b.Close()
//
//	sub := b.Child("question-42", budget.Unlimited)
//	defer sub.Close()
//
// A ceiling can only be exceeded by at most one already-admitted
// in-flight call whose speculative estimate underestimated its actual
// cost; see ForceCharge.
package budget

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/llmbroker/model"
)

// Unlimited is the ceiling value for a scope with no spend limit.
const Unlimited model.Cost = -1

// Sentinel errors.
var (
	// ErrClosed indicates a charge against a finalized budget scope.
	ErrClosed = errors.New("budget scope is closed")

	// ErrNegativeAmount indicates a negative charge or refund amount.
	ErrNegativeAmount = errors.New("amount must be >= 0")
)

// ExceededError reports a charge that would breach a ceiling. The charge
// was rejected without mutating any total; the named scope is the
// innermost one that would have been breached.
type ExceededError struct {
	Name      string
	Ceiling   model.Cost
	Spent     model.Cost
	Attempted model.Cost
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget %q exceeded: spent %s + charge %s > ceiling %s",
		e.Name, e.Spent, e.Attempted, e.Ceiling)
}

// Budget is one accounting scope in a tree. All methods are safe for
// concurrent use; charges against the same scope are serialized so
// totals are exact, never approximate.
type Budget struct {
	name    string
	ceiling model.Cost
	parent  *Budget
	depth   int
	logger  *slog.Logger

	mu       sync.Mutex
	spent    model.Cost
	closed   bool
	children []*Budget
}

// Option configures a root budget scope.
type Option func(*Budget)

// WithLogger sets the logger used for scope-exit reporting.
// Children inherit the root's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Budget) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Open creates a root budget scope with the given ceiling.
// Use Unlimited for a scope that only tracks spend.
func Open(name string, ceiling model.Cost, opts ...Option) *Budget {
	b := &Budget{
		name:    name,
		ceiling: ceiling,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Child opens a nested scope. Spend charged to the child also attributes
// to this scope and every ancestor above it.
func (b *Budget) Child(name string, ceiling model.Cost) *Budget {
	child := &Budget{
		name:    name,
		ceiling: ceiling,
		parent:  b,
		depth:   b.depth + 1,
		logger:  b.logger,
	}

	b.mu.Lock()
	b.children = append(b.children, child)
	b.mu.Unlock()

	return child
}

// Name returns the scope name.
func (b *Budget) Name() string { return b.name }

// Ceiling returns the scope's ceiling (Unlimited for none).
func (b *Budget) Ceiling() model.Cost { return b.ceiling }

// Spent returns the current running total for this scope.
func (b *Budget) Spent() model.Cost {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}

// chain returns the scopes from root to b. Parent links are immutable,
// so no locks are needed to walk them.
func (b *Budget) chain() []*Budget {
	chain := make([]*Budget, b.depth+1)
	for cur := b; cur != nil; cur = cur.parent {
		chain[cur.depth] = cur
	}
	return chain
}

// lockChain locks every scope root-to-leaf. The fixed order makes
// concurrent charges on overlapping chains deadlock-free.
func lockChain(chain []*Budget) {
	for _, s := range chain {
		s.mu.Lock()
	}
}

func unlockChain(chain []*Budget) {
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].mu.Unlock()
	}
}

// Charge atomically applies amount to this scope and every ancestor.
// If applying it would push any scope in the chain over its ceiling, no
// total is mutated anywhere and an *ExceededError names the innermost
// scope that would have been breached. A rejected charge means the
// underlying call must not be dispatched.
func (b *Budget) Charge(amount model.Cost) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	chain := b.chain()
	lockChain(chain)
	defer unlockChain(chain)

	// Check phase, innermost first so the tightest scope is reported.
	for i := len(chain) - 1; i >= 0; i-- {
		s := chain[i]
		if s.closed {
			return fmt.Errorf("budget %q: %w", s.name, ErrClosed)
		}
		if s.ceiling != Unlimited && s.spent+amount > s.ceiling {
			return &ExceededError{
				Name:      s.name,
				Ceiling:   s.ceiling,
				Spent:     s.spent,
				Attempted: amount,
			}
		}
	}

	// Apply phase.
	for _, s := range chain {
		s.spent += amount
	}
	return nil
}

// Refund reverses part of an earlier charge on this scope and every
// ancestor, used to reconcile a speculative over-estimate. Totals never
// go below zero.
func (b *Budget) Refund(amount model.Cost) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	chain := b.chain()
	lockChain(chain)
	defer unlockChain(chain)

	for _, s := range chain {
		s.spent -= amount
		if s.spent < 0 {
			s.spent = 0
		}
	}
	return nil
}

// ForceCharge applies amount unconditionally: once a provider has billed
// a call, the cost cannot be un-spent. It returns an *ExceededError as a
// violation report when the applied charge leaves any scope past its
// ceiling; the charge is recorded regardless.
func (b *Budget) ForceCharge(amount model.Cost) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	chain := b.chain()
	lockChain(chain)
	defer unlockChain(chain)

	var violation *ExceededError
	for i := len(chain) - 1; i >= 0; i-- {
		s := chain[i]
		s.spent += amount
		if s.ceiling != Unlimited && s.spent > s.ceiling {
			violation = &ExceededError{
				Name:      s.name,
				Ceiling:   s.ceiling,
				Spent:     s.spent - amount,
				Attempted: amount,
			}
		}
	}
	if violation != nil {
		return violation
	}
	return nil
}
