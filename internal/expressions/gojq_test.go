package expressions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rendis/textaction/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoJQEngine(t *testing.T) {
	e := NewGoJQEngine()
	assert.NotNil(t, e)
	assert.Equal(t, "jq", e.Name())
}

func TestGoJQEngine_ImplementsEngine(t *testing.T) {
	var _ Engine = (*GoJQEngine)(nil)
}

func TestGoJQ_SelectField(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{"message": "Actions detected.", "other": 1}

	out, err := e.Evaluate(context.Background(), ".message", data)
	require.NoError(t, err)
	assert.Equal(t, "Actions detected.", out)
}

func TestGoJQ_ReshapeArrayInput(t *testing.T) {
	e := NewGoJQEngine()
	input := []any{
		map[string]any{"name": "add", "parameters": map[string]any{"values": []any{3, 4}}},
		map[string]any{"name": "divide", "parameters": map[string]any{"a": 100, "b": 5}},
	}

	out, err := e.EvaluateValue(context.Background(), `[.[] | {action: .name, args: .parameters}]`, input)
	require.NoError(t, err)

	list, ok := out.([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	first := list[0].(map[string]any)
	assert.Equal(t, "add", first["action"])
	assert.Equal(t, []any{3.0, 4.0}, first["args"].(map[string]any)["values"])
}

func TestGoJQ_JSONNumberInput(t *testing.T) {
	e := NewGoJQEngine()

	out, err := e.EvaluateValue(context.Background(), ".a + .b", map[string]any{"a": json.Number("1.5"), "b": 2})
	require.NoError(t, err)
	assert.Equal(t, 3.5, out)
}

func TestGoJQ_MultipleAndZeroOutputs(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	out, err := e.EvaluateValue(ctx, ".[]", []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out)

	out, err = e.EvaluateValue(ctx, "empty", nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	all, err := e.EvaluateAll(ctx, ".x", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, []any{1.0}, all)
}

func TestGoJQ_Errors(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	_, err := e.EvaluateValue(ctx, ".[", nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeExpression))

	_, err = e.EvaluateValue(ctx, ".a.b", map[string]any{"a": "str"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jq evaluation failed")

	_, err = e.EvaluateValue(ctx, "", nil)
	require.Error(t, err)
}

func TestGoJQ_EnvBlocked(t *testing.T) {
	e := NewGoJQEngine()

	out, err := e.EvaluateValue(context.Background(), "$ENV | length", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, out)
}
