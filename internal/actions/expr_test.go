package actions

import (
	"testing"

	"github.com/rendis/textaction/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAction_Arithmetic(t *testing.T) {
	reg := builtinRegistry(t)

	tests := []struct {
		expression string
		want       float64
	}{
		{"(3 + 4) * 2", 14},
		{"10 / 4", 2.5},
		{"2 ** 10", 1024},
		{"abs(-7) + max(1, 3)", 10},
		{"17 % 5", 2},
	}
	for _, tc := range tests {
		t.Run(tc.expression, func(t *testing.T) {
			got, err := call(t, reg, "evaluate", tc.expression)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEvaluateAction_Rejections(t *testing.T) {
	reg := builtinRegistry(t)

	tests := []struct {
		name       string
		expression string
	}{
		{"boolean result", "1 < 2"},
		{"string result", `"seven"`},
		{"syntax error", "(3 + "},
		{"infinite", "1 / 0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := call(t, reg, "evaluate", tc.expression)
			assert.Nil(t, out)
			se := requireCode(t, err, schema.ErrCodeInvocationFault)
			assert.Contains(t, se.Message, "evaluate")
		})
	}
}

func TestEvaluateAction_Definition(t *testing.T) {
	reg := builtinRegistry(t)
	def, err := reg.Lookup("evaluate")
	require.NoError(t, err)
	require.Len(t, def.Params, 1)
	assert.Equal(t, ParamString, def.Params[0].Type)
	require.Len(t, def.Guards, 1)
}
