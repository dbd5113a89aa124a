package expressions

import (
	"context"
	"fmt"
	"testing"

	"github.com/rendis/textaction/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExprEngine(t *testing.T) {
	e := NewExprEngine()
	assert.NotNil(t, e)
	assert.Equal(t, "expr", e.Name())
}

func TestExprEngine_ImplementsEngine(t *testing.T) {
	var _ Engine = (*ExprEngine)(nil)
}

func TestExpr_Arithmetic(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()

	tests := []struct {
		expr string
		want any
	}{
		{"42", 42},
		{"(3 + 4) * 2", 14},
		{"10 / 4", 2.5},
		{"2 ** 10", 1024.0},
		{"abs(-3)", 3},
		{"max(1, 7, 3)", 7},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			out, err := e.Evaluate(ctx, tc.expr, nil)
			require.NoError(t, err)
			assert.EqualValues(t, tc.want, out)
		})
	}
}

func TestExpr_Environment(t *testing.T) {
	e := NewExprEngine()

	out, err := e.Evaluate(context.Background(), "a * b", map[string]any{"a": 6, "b": 7})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestExpr_CompileError(t *testing.T) {
	e := NewExprEngine()

	_, err := e.Evaluate(context.Background(), "3 +", nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeExpression))
}

func TestExpr_EmptyExpression(t *testing.T) {
	e := NewExprEngine()

	_, err := e.Evaluate(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeExpression))
}

func TestExpr_CachesPrograms(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()

	_, err := e.Evaluate(ctx, "1 + 1", nil)
	require.NoError(t, err)
	_, err = e.Evaluate(ctx, "1 + 1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Cached())
}

func TestExpr_CacheIsBounded(t *testing.T) {
	e := NewExprEngineWithCache(8)
	ctx := context.Background()

	for i := range 1000 {
		out, err := e.Evaluate(ctx, fmt.Sprintf("%d + 1", i), nil)
		require.NoError(t, err)
		assert.EqualValues(t, i+1, out)
	}
	assert.Equal(t, 8, e.Cached())

	// An evicted expression still evaluates.
	out, err := e.Evaluate(ctx, "0 + 1", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, out)
}

func TestExpr_DefaultCacheSize(t *testing.T) {
	e := NewExprEngine()
	ctx := context.Background()

	for i := range DefaultExprCacheSize + 10 {
		_, err := e.Evaluate(ctx, fmt.Sprintf("%d * 2", i), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultExprCacheSize, e.Cached())
}

func TestExpr_NonPositiveCacheSize(t *testing.T) {
	e := NewExprEngineWithCache(0)
	ctx := context.Background()

	for _, expression := range []string{"1 + 1", "2 + 2"} {
		_, err := e.Evaluate(ctx, expression, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.Cached())
}
