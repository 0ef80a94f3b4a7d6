package budget

import (
	"log/slog"

	"github.com/randalmurphal/llmbroker/model"
)

// Report is the frozen spend summary emitted when a scope closes.
type Report struct {
	Name     string     `json:"name"`
	Spent    model.Cost `json:"spent"`
	Ceiling  model.Cost `json:"ceiling"`
	Children []Report   `json:"children,omitempty"`
}

// Close finalizes the scope and reports its spend. Closing is idempotent;
// the first close freezes the total and logs it, later closes return the
// same snapshot. Charging a closed scope fails with ErrClosed.
func (b *Budget) Close() Report {
	b.mu.Lock()
	alreadyClosed := b.closed
	b.closed = true
	report := Report{
		Name:    b.name,
		Spent:   b.spent,
		Ceiling: b.ceiling,
	}
	children := make([]*Budget, len(b.children))
	copy(children, b.children)
	b.mu.Unlock()

	for _, child := range children {
		report.Children = append(report.Children, child.snapshot())
	}

	if !alreadyClosed {
		b.logger.Info("budget closed",
			slog.String("budget", b.name),
			slog.String("spent", report.Spent.String()))
	}
	return report
}

// snapshot builds a Report without closing the scope.
func (b *Budget) snapshot() Report {
	b.mu.Lock()
	report := Report{
		Name:    b.name,
		Spent:   b.spent,
		Ceiling: b.ceiling,
	}
	children := make([]*Budget, len(b.children))
	copy(children, b.children)
	b.mu.Unlock()

	for _, child := range children {
		report.Children = append(report.Children, child.snapshot())
	}
	return report
}

// Totals flattens the scope tree into budget name -> spent amount, the
// shape handed to external logging and telemetry. Names are expected to
// be unique within a tree; duplicates keep the larger total.
func (b *Budget) Totals() map[string]model.Cost {
	totals := make(map[string]model.Cost)
	b.addTotals(totals)
	return totals
}

func (b *Budget) addTotals(totals map[string]model.Cost) {
	b.mu.Lock()
	spent := b.spent
	children := make([]*Budget, len(b.children))
	copy(children, b.children)
	b.mu.Unlock()

	if existing, ok := totals[b.name]; !ok || spent > existing {
		totals[b.name] = spent
	}
	for _, child := range children {
		child.addTotals(totals)
	}
}

// Do runs fn inside a child scope, guaranteeing the scope is finalized
// on normal or erroring exit.
func (b *Budget) Do(name string, ceiling model.Cost, fn func(*Budget) error) (Report, error) {
	child := b.Child(name, ceiling)
	defer child.Close()
	err := fn(child)
	return child.snapshot(), err
}
