package expressions

import "context"

// Engine evaluates expressions against a data map.
// Three implementations: CEL (action guards), GoJQ (response selectors),
// Expr (the evaluate action).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
