package actions

import (
	"context"
	"math"

	"github.com/rendis/textaction/internal/expressions"
	"github.com/rendis/textaction/pkg/schema"
	"github.com/spf13/cast"
)

// --- evaluate ---

// EvaluateAction returns the "evaluate" action, which computes a free-form
// arithmetic expression such as "(3 + 4) * 2" with the Expr engine.
func EvaluateAction(engine *expressions.ExprEngine) Definition {
	return Definition{
		Name:        "evaluate",
		Description: "Evaluates an arithmetic expression and returns its numeric value.",
		Params: []ParamSpec{
			{Name: "expression", Type: ParamString, Description: "arithmetic expression, e.g. (3 + 4) * 2"},
		},
		Guards: []Guard{{Expression: `args.expression != ""`, Message: "expression is empty"}},
		Invoke: func(ctx context.Context, args []any) (any, error) {
			expression, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}

			// No environment: only literals and built-in functions are visible.
			result, err := engine.Evaluate(ctx, expression, nil)
			if err != nil {
				return nil, schema.NewErrorf(schema.ErrCodeInvocationFault, "evaluate: %v", err).WithCause(err)
			}

			// cast would turn true into 1 and "3" into 3.
			switch result.(type) {
			case bool, string, nil:
				return nil, schema.NewErrorf(schema.ErrCodeInvocationFault,
					"evaluate: expression %q produced %T, want a number", expression, result)
			}

			f, err := cast.ToFloat64E(result)
			if err != nil {
				return nil, schema.NewErrorf(schema.ErrCodeInvocationFault,
					"evaluate: expression %q produced %T, want a number", expression, result)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, schema.NewError(schema.ErrCodeInvocationFault, "evaluate: result is not a finite number")
			}
			return f, nil
		},
	}
}
