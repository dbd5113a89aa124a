package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	e := NewError(ErrCodeActionNotFound, "action not found")
	assert.Equal(t, "[ACTION_NOT_FOUND] action not found", e.Error())

	e.WithAction("square")
	assert.Equal(t, "[ACTION_NOT_FOUND] action square: action not found", e.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	e := NewErrorf(ErrCodeExtractionService, "POST %s failed", "http://svc/x").WithCause(cause)

	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "POST http://svc/x failed", e.Message)
}

func TestError_IsRetryable(t *testing.T) {
	assert.True(t, NewError(ErrCodeExtractionService, "x").IsRetryable())
	assert.False(t, NewError(ErrCodeMalformedResponse, "x").IsRetryable())
	assert.False(t, NewError(ErrCodeInvalidArgument, "x").IsRetryable())
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("query failed: %w", NewError(ErrCodeMalformedResponse, "bad shape"))

	assert.Equal(t, ErrCodeMalformedResponse, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeMalformedResponse))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestFailed_KeepsCodeAndMessage(t *testing.T) {
	r := Failed("divide", NewError(ErrCodeInvocationFault, "division by zero").WithAction("divide"))

	assert.Equal(t, StatusError, r.Status)
	assert.False(t, r.OK())
	require.NotNil(t, r.Error)
	assert.Equal(t, ErrCodeInvocationFault, r.Error.Code)
	assert.Equal(t, "division by zero", r.Error.Message)
	assert.Nil(t, r.Output)
}

func TestFailed_PlainErrorIsInvocationFault(t *testing.T) {
	r := Failed("x", errors.New("boom"))
	require.NotNil(t, r.Error)
	assert.Equal(t, ErrCodeInvocationFault, r.Error.Code)
	assert.Equal(t, "boom", r.Error.Message)
}

func TestQueryResult_Summary(t *testing.T) {
	q := &QueryResult{Results: []ActionResult{
		Succeeded("add", 7.0),
		Failed("nope", NewError(ErrCodeActionNotFound, "action not found")),
		Succeeded("multiply", 120.0),
	}}

	ok, failed := q.Summary()
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}
