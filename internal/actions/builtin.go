package actions

import "github.com/rendis/textaction/internal/expressions"

// RegisterBuiltins registers all built-in actions in the given registry.
func RegisterBuiltins(reg *Registry, exprEngine *expressions.ExprEngine) error {
	all := make([]Definition, 0, 16)

	// Arithmetic actions.
	all = append(all, ArithmeticActions()...)

	// Statistics and misc math.
	all = append(all, MathActions()...)

	// Free-form expression evaluation.
	all = append(all, EvaluateAction(exprEngine))

	for _, d := range all {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
