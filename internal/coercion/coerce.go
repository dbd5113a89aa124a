// Package coercion turns the untyped values an extraction service returns
// into the typed argument list an action declares.
package coercion

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rendis/textaction/internal/actions"
	"github.com/rendis/textaction/pkg/schema"
	"github.com/spf13/cast"
)

// Invocation is a fully typed call, ready to hand to an InvokeFunc.
// Args holds float64, string or []float64 values in the order of Params,
// the parameter list the call was bound against.
type Invocation struct {
	Action string
	Params []actions.ParamSpec
	Args   []any
}

// Named returns the arguments keyed by parameter name, the shape guards see.
func (inv *Invocation) Named() map[string]any {
	out := make(map[string]any, len(inv.Params))
	for i, p := range inv.Params {
		if i < len(inv.Args) {
			out[p.Name] = inv.Args[i]
		}
	}
	return out
}

// Coerce binds raw against params. It never mutates raw and always returns
// either a fresh Invocation or an INVALID_ARGUMENT error naming the parameter.
func Coerce(action string, params []actions.ParamSpec, raw schema.RawArgs) (*Invocation, error) {
	args := make([]any, 0, len(params))
	for i, p := range params {
		v, present := locate(params, i, raw)
		if !present || v == nil {
			if p.Default == nil {
				return nil, invalid(action, p.Name, "value is missing")
			}
			v = p.Default
		}

		typed, err := coerceValue(p, v)
		if err != nil {
			return nil, invalid(action, p.Name, err.Error())
		}
		args = append(args, typed)
	}
	return &Invocation{Action: action, Params: params, Args: args}, nil
}

// Bind coerces raw against the first of forms it fits exactly, falling back
// to the first it fits once extra arguments are ignored, and finally to
// forms[0] so the error names what the primary form is missing.
func Bind(action string, forms [][]actions.ParamSpec, raw schema.RawArgs) (*Invocation, error) {
	if len(forms) == 0 {
		return Coerce(action, nil, raw)
	}
	if len(forms) > 1 {
		for _, exact := range []bool{true, false} {
			for _, params := range forms {
				if fits(params, raw, exact) {
					return Coerce(action, params, raw)
				}
			}
		}
	}
	return Coerce(action, forms[0], raw)
}

// fits reports whether raw supplies every parameter without a default.
// An exact fit also leaves no argument unused.
func fits(params []actions.ParamSpec, raw schema.RawArgs, exact bool) bool {
	required := 0
	for _, p := range params {
		if p.Default == nil {
			required++
		}
	}

	if raw.IsPositional() {
		n := len(raw.Positional)
		if len(params) > 0 && params[len(params)-1].Type == actions.ParamNumberList {
			return n >= len(params)
		}
		if exact {
			return n >= required && n <= len(params)
		}
		return n >= required
	}

	known := 0
	for _, p := range params {
		v, ok := raw.Named[p.Name]
		if ok {
			known++
		}
		if p.Default == nil && (!ok || v == nil) {
			return false
		}
	}
	return !exact || known == len(raw.Named)
}

// locate finds the raw value for params[i]. Named args are matched by name.
// Positional args are matched by index, except that a trailing number_list
// parameter whose element is not itself a list takes every remaining element.
func locate(params []actions.ParamSpec, i int, raw schema.RawArgs) (any, bool) {
	if !raw.IsPositional() {
		v, ok := raw.Named[params[i].Name]
		return v, ok
	}

	if i >= len(raw.Positional) {
		return nil, false
	}
	v := raw.Positional[i]
	last := i == len(params)-1
	if params[i].Type == actions.ParamNumberList && last {
		if _, isList := v.([]any); !isList {
			rest := make([]any, len(raw.Positional)-i)
			copy(rest, raw.Positional[i:])
			return rest, true
		}
	}
	return v, true
}

func coerceValue(p actions.ParamSpec, v any) (any, error) {
	switch p.Type {
	case actions.ParamNumber:
		return toNumber(v)
	case actions.ParamString:
		return toString(v)
	case actions.ParamNumberList:
		return toNumberList(v)
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", p.Type)
	}
}

// toNumber accepts numbers and numeric strings. Null and booleans are
// rejected even though cast would map them to 0 or 1, and NaN or infinities
// never pass.
func toNumber(v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, fmt.Errorf("expected a number, got null")
	case bool:
		return 0, fmt.Errorf("expected a number, got boolean %v", val)
	case string:
		v = strings.TrimSpace(val)
		if v == "" {
			return 0, fmt.Errorf("expected a number, got an empty string")
		}
	case []any, map[string]any:
		return 0, fmt.Errorf("expected a number, got %s", describe(v))
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("expected a number, got %s", describe(v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %s", describe(v))
	}
	return f, nil
}

func toString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("cannot render %s as text", describe(v))
		}
		return string(b), nil
	default:
		return fmt.Sprint(val), nil
	}
}

// toNumberList coerces every element independently; one bad element fails
// the whole list. A JSON array encoded as a string and a bare scalar are
// accepted too.
func toNumberList(v any) ([]float64, error) {
	var elems []any
	switch val := v.(type) {
	case []any:
		elems = val
	case []float64:
		return append([]float64(nil), val...), nil
	case string:
		s := strings.TrimSpace(val)
		if strings.HasPrefix(s, "[") {
			dec := json.NewDecoder(strings.NewReader(s))
			dec.UseNumber()
			if err := dec.Decode(&elems); err != nil {
				return nil, fmt.Errorf("expected a list of numbers, got %s", describe(v))
			}
		} else {
			elems = []any{val}
		}
	case map[string]any:
		return nil, fmt.Errorf("expected a list of numbers, got an object")
	default:
		elems = []any{val}
	}

	out := make([]float64, 0, len(elems))
	for i, e := range elems {
		f, err := toNumber(e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %v", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func invalid(action, param, reason string) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeInvalidArgument, "invalid argument %q: %s", param, reason).
		WithAction(action).
		WithDetails(map[string]any{"param": param})
}

func describe(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case nil:
		return "null"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%v", val)
	}
}
