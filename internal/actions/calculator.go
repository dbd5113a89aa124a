package actions

import (
	"context"
	"math"
	"sort"

	"github.com/rendis/textaction/pkg/schema"
)

// Param helpers used by all built-in implementations. Coercion guarantees the
// dynamic types, so a mismatch here is a wiring bug reported as a fault.

func numberArg(args []any, i int) (float64, error) {
	if i >= len(args) {
		return 0, schema.NewErrorf(schema.ErrCodeInvocationFault, "missing argument %d", i)
	}
	f, ok := args[i].(float64)
	if !ok {
		return 0, schema.NewErrorf(schema.ErrCodeInvocationFault, "argument %d is %T, want number", i, args[i])
	}
	return f, nil
}

func numberListArg(args []any, i int) ([]float64, error) {
	if i >= len(args) {
		return nil, schema.NewErrorf(schema.ErrCodeInvocationFault, "missing argument %d", i)
	}
	l, ok := args[i].([]float64)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeInvocationFault, "argument %d is %T, want number list", i, args[i])
	}
	return l, nil
}

func stringArg(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", schema.NewErrorf(schema.ErrCodeInvocationFault, "missing argument %d", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", schema.NewErrorf(schema.ErrCodeInvocationFault, "argument %d is %T, want string", i, args[i])
	}
	return s, nil
}

func twoNumbers(args []any) (float64, float64, error) {
	a, err := numberArg(args, 0)
	if err != nil {
		return 0, 0, err
	}
	b, err := numberArg(args, 1)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// finite rejects NaN and infinities so they never reach a result.
func finite(op string, v float64) (any, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, schema.NewErrorf(schema.ErrCodeInvocationFault, "%s: result is not a finite number", op)
	}
	return v, nil
}

var (
	pairParams = []ParamSpec{
		{Name: "a", Type: ParamNumber, Description: "first operand"},
		{Name: "b", Type: ParamNumber, Description: "second operand"},
	}
	valuesParams = []ParamSpec{
		{Name: "values", Type: ParamNumberList, Description: "operands, in any order"},
	}
	dataParams = []ParamSpec{
		{Name: "data", Type: ParamNumberList, Description: "sample values"},
	}
	xParams = []ParamSpec{
		{Name: "x", Type: ParamNumber, Description: "input value"},
	}
)

// ArithmeticActions returns add, subtract, multiply and divide. Each accepts
// either the pair a, b or a single values list; subtract and divide fold the
// list from the left.
func ArithmeticActions() []Definition {
	return []Definition{
		{
			Name:         "add",
			Description:  "Returns the sum of a list of numbers.",
			Params:       valuesParams,
			Alternatives: [][]ParamSpec{pairParams},
			Invoke:       add,
		},
		{
			Name:         "subtract",
			Description:  "Returns the difference between a and b.",
			Params:       pairParams,
			Alternatives: [][]ParamSpec{valuesParams},
			Invoke:       subtract,
		},
		{
			Name:         "multiply",
			Description:  "Returns the product of a list of numbers.",
			Params:       valuesParams,
			Alternatives: [][]ParamSpec{pairParams},
			Invoke:       multiply,
		},
		{
			Name:         "divide",
			Description:  "Returns the quotient of a divided by b.",
			Params:       pairParams,
			Alternatives: [][]ParamSpec{valuesParams},
			Guards:       []Guard{{Expression: "!has(args.b) || args.b != 0.0", Message: "division by zero"}},
			Invoke:       divide,
		},
	}
}

// operands accepts both arithmetic forms: one []float64 or two numbers.
func operands(args []any) ([]float64, error) {
	if len(args) == 1 {
		return numberListArg(args, 0)
	}
	a, b, err := twoNumbers(args)
	if err != nil {
		return nil, err
	}
	return []float64{a, b}, nil
}

// foldOperands is operands for the non-commutative operations, which need a
// first operand to start from.
func foldOperands(op string, args []any) ([]float64, error) {
	values, err := operands(args)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, schema.NewErrorf(schema.ErrCodeInvocationFault, "%s: needs at least two values, got %d", op, len(values))
	}
	return values, nil
}

func add(_ context.Context, args []any) (any, error) {
	values, err := operands(args)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return finite("add", sum)
}

func subtract(_ context.Context, args []any) (any, error) {
	values, err := foldOperands("subtract", args)
	if err != nil {
		return nil, err
	}
	diff := values[0]
	for _, v := range values[1:] {
		diff -= v
	}
	return finite("subtract", diff)
}

func multiply(_ context.Context, args []any) (any, error) {
	values, err := operands(args)
	if err != nil {
		return nil, err
	}
	product := 1.0
	for _, v := range values {
		product *= v
	}
	return finite("multiply", product)
}

func divide(_ context.Context, args []any) (any, error) {
	values, err := foldOperands("divide", args)
	if err != nil {
		return nil, err
	}
	quotient := values[0]
	for _, v := range values[1:] {
		if v == 0 {
			return nil, schema.NewError(schema.ErrCodeInvocationFault, "division by zero")
		}
		quotient /= v
	}
	return finite("divide", quotient)
}

// MathActions returns the remaining calculator operations.
func MathActions() []Definition {
	return []Definition{
		{
			Name:        "power",
			Description: "Returns x raised to the power of y.",
			Params: []ParamSpec{
				{Name: "x", Type: ParamNumber, Description: "base"},
				{Name: "y", Type: ParamNumber, Description: "exponent"},
			},
			Invoke: power,
		},
		{
			Name:        "square_root",
			Description: "Returns the square root of a.",
			Params:      []ParamSpec{{Name: "a", Type: ParamNumber, Description: "radicand"}},
			Guards:      []Guard{{Expression: "args.a >= 0.0", Message: "negative input for square root"}},
			Invoke:      squareRoot,
		},
		{
			Name:        "modulus",
			Description: "Returns the remainder of a divided by b.",
			Params:      pairParams,
			Guards:      []Guard{{Expression: "args.b != 0.0", Message: "division by zero"}},
			Invoke:      modulus,
		},
		{
			Name:        "percentage",
			Description: "Returns the percentage of part with respect to whole.",
			Params: []ParamSpec{
				{Name: "part", Type: ParamNumber},
				{Name: "whole", Type: ParamNumber},
			},
			Guards: []Guard{{Expression: "args.whole != 0.0", Message: "whole is zero"}},
			Invoke: percentage,
		},
		{
			Name:        "absolute_value",
			Description: "Returns the absolute value of x.",
			Params:      xParams,
			Invoke:      absoluteValue,
		},
		{
			Name:        "factorial",
			Description: "Returns the factorial of n.",
			Params:      []ParamSpec{{Name: "n", Type: ParamNumber, Description: "non-negative integer"}},
			Guards: []Guard{
				{Expression: "args.n >= 0.0", Message: "factorial of negative number"},
				{Expression: "args.n <= 170.0", Message: "factorial input too large"},
			},
			Invoke: factorial,
		},
		{
			Name:        "mean",
			Description: "Returns the mean of the data.",
			Params:      dataParams,
			Guards:      []Guard{{Expression: "size(args.data) > 0", Message: "mean of empty data"}},
			Invoke:      mean,
		},
		{
			Name:        "median",
			Description: "Returns the median of the data.",
			Params:      dataParams,
			Guards:      []Guard{{Expression: "size(args.data) > 0", Message: "median of empty data"}},
			Invoke:      median,
		},
	}
}

func power(_ context.Context, args []any) (any, error) {
	x, err := numberArg(args, 0)
	if err != nil {
		return nil, err
	}
	y, err := numberArg(args, 1)
	if err != nil {
		return nil, err
	}
	return finite("power", math.Pow(x, y))
}

func squareRoot(_ context.Context, args []any) (any, error) {
	a, err := numberArg(args, 0)
	if err != nil {
		return nil, err
	}
	if a < 0 {
		return nil, schema.NewError(schema.ErrCodeInvocationFault, "negative input for square root")
	}
	return math.Sqrt(a), nil
}

func modulus(_ context.Context, args []any) (any, error) {
	a, b, err := twoNumbers(args)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, schema.NewError(schema.ErrCodeInvocationFault, "division by zero")
	}
	return math.Mod(a, b), nil
}

func percentage(_ context.Context, args []any) (any, error) {
	part, whole, err := twoNumbers(args)
	if err != nil {
		return nil, err
	}
	if whole == 0 {
		return nil, schema.NewError(schema.ErrCodeInvocationFault, "whole is zero")
	}
	return finite("percentage", part/whole*100)
}

func absoluteValue(_ context.Context, args []any) (any, error) {
	x, err := numberArg(args, 0)
	if err != nil {
		return nil, err
	}
	return math.Abs(x), nil
}

func factorial(_ context.Context, args []any) (any, error) {
	n, err := numberArg(args, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 || n != math.Trunc(n) {
		return nil, schema.NewErrorf(schema.ErrCodeInvocationFault, "factorial requires a non-negative integer, got %v", n)
	}
	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
	}
	return finite("factorial", result)
}

func mean(_ context.Context, args []any) (any, error) {
	data, err := numberListArg(args, 0)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, schema.NewError(schema.ErrCodeInvocationFault, "mean of empty data")
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return finite("mean", sum/float64(len(data)))
}

func median(_ context.Context, args []any) (any, error) {
	data, err := numberListArg(args, 0)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, schema.NewError(schema.ErrCodeInvocationFault, "median of empty data")
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}
