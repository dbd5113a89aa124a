package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rendis/textaction/pkg/schema"
)

// DefaultExprCacheSize bounds how many compiled programs an ExprEngine keeps.
const DefaultExprCacheSize = 256

// ExprEngine evaluates arithmetic with expr-lang/expr for the evaluate action:
// + - * / % **, parentheses and the built-ins abs, ceil, floor, round, max,
// min and sum. Expressions arrive from user text, so compiled programs live
// in a fixed-size LRU rather than an unbounded map. Safe for concurrent use.
type ExprEngine struct {
	programs *lru.Cache[string, *vm.Program]
}

// NewExprEngine creates an engine with DefaultExprCacheSize.
func NewExprEngine() *ExprEngine {
	return NewExprEngineWithCache(DefaultExprCacheSize)
}

// NewExprEngineWithCache creates an engine keeping at most size compiled
// programs. A size below 1 is treated as 1.
func NewExprEngineWithCache(size int) *ExprEngine {
	// lru.New only fails for a non-positive size.
	programs, _ := lru.New[string, *vm.Program](max(size, 1))
	return &ExprEngine{programs: programs}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate runs expression with data as its top-level variables. Unknown
// variables evaluate to nil instead of failing compilation.
func (e *ExprEngine) Evaluate(_ context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty expr expression")
	}
	if data == nil {
		data = map[string]any{}
	}

	prg, err := e.program(expression, data)
	if err != nil {
		return nil, err
	}

	out, err := vm.Run(prg, data)
	if err != nil {
		return nil, exprError("expr evaluation failed for %q: %s", expression, err)
	}
	return out, nil
}

// Cached returns the number of compiled programs currently held.
func (e *ExprEngine) Cached() int {
	return e.programs.Len()
}

// program compiles expression once per cache residency. Two goroutines may
// race to compile the same text; both results are equivalent.
func (e *ExprEngine) program(expression string, env map[string]any) (*vm.Program, error) {
	if prg, ok := e.programs.Get(expression); ok {
		return prg, nil
	}
	prg, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, exprError("expr compile error in %q: %s", expression, err)
	}
	e.programs.Add(expression, prg)
	return prg, nil
}

func exprError(format, expression string, err error) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeExpression, format, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

var _ Engine = (*ExprEngine)(nil)
