package actions

import (
	"context"
)

// ParamType is the declared type of an action parameter.
type ParamType string

const (
	ParamNumber     ParamType = "number"
	ParamString     ParamType = "string"
	ParamNumberList ParamType = "number_list"
)

// Valid reports whether t is a known parameter type.
func (t ParamType) Valid() bool {
	switch t {
	case ParamNumber, ParamString, ParamNumberList:
		return true
	}
	return false
}

// ParamSpec declares one parameter of an action, in call order.
// A non-nil Default is used when the extraction service omits the value.
type ParamSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
}

// Guard is a CEL precondition evaluated against the coerced arguments,
// exposed to the expression as the map variable "args".
type Guard struct {
	Expression string `json:"expression"`
	Message    string `json:"message"`
}

// InvokeFunc is the bound implementation of an action. args holds one typed
// value per ParamSpec: float64, string or []float64.
type InvokeFunc func(ctx context.Context, args []any) (any, error)

// Definition is a registered action. Immutable after registration.
// Alternatives are further parameter lists the action accepts; coercion
// picks whichever one the raw arguments fit, Params first.
type Definition struct {
	Name         string
	Description  string
	Params       []ParamSpec
	Alternatives [][]ParamSpec
	Guards       []Guard
	Invoke       InvokeFunc
}

// Forms returns Params followed by every alternative parameter list.
func (d *Definition) Forms() [][]ParamSpec {
	forms := make([][]ParamSpec, 0, 1+len(d.Alternatives))
	forms = append(forms, d.Params)
	return append(forms, d.Alternatives...)
}

// ActionRegistry manages registration and lookup of available actions.
type ActionRegistry interface {
	Register(def Definition) error
	Lookup(name string) (*Definition, error)
	List() []ActionInfo
}

// ActionInfo is a summary of a registered action for listing.
type ActionInfo struct {
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Params       []ParamSpec   `json:"params"`
	Alternatives [][]ParamSpec `json:"alternatives,omitempty"`
}
