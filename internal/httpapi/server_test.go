package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rendis/textaction/internal/actions"
	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/internal/validation"
	"github.com/rendis/textaction/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	got pipeline.Request
	out *schema.QueryResult
	err error
}

func (s *stubRunner) RunWith(_ context.Context, req pipeline.Request) (*schema.QueryResult, error) {
	s.got = req
	return s.out, s.err
}

func newTestServer(t *testing.T, runner *stubRunner) http.Handler {
	t.Helper()
	v, err := validation.NewJSONSchemaValidator()
	require.NoError(t, err)

	reg := actions.NewRegistry()
	require.NoError(t, actions.RegisterBuiltins(reg, nil))

	return NewServer(Deps{Runner: runner, Actions: reg, Validator: v, Version: "test"}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestRun_Success(t *testing.T) {
	runner := &stubRunner{out: &schema.QueryResult{
		QueryID: "q-1",
		Results: []schema.ActionResult{
			schema.Succeeded("add", 7.0),
			schema.Failed("divide", schema.NewError(schema.ErrCodeInvocationFault, "division by zero")),
		},
	}}
	h := newTestServer(t, runner)

	rec, body := do(t, h, http.MethodPost, "/run", `{"text": "add 3 and 4", "top_k": 2, "threshold": 0.3}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "q-1", body["query_id"])
	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "error", results[1].(map[string]any)["status"])

	assert.Equal(t, "add 3 and 4", runner.got.Text)
	require.NotNil(t, runner.got.TopK)
	assert.Equal(t, 2, *runner.got.TopK)
	require.NotNil(t, runner.got.Threshold)
	assert.Equal(t, 0.3, *runner.got.Threshold)
}

func TestRun_DefaultsLeftToPipeline(t *testing.T) {
	runner := &stubRunner{out: &schema.QueryResult{Results: []schema.ActionResult{}}}
	h := newTestServer(t, runner)

	rec, _ := do(t, h, http.MethodPost, "/run", `{"text": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, runner.got.TopK)
	assert.Nil(t, runner.got.Threshold)
}

func TestRun_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{text:`},
		{"missing text", `{}`},
		{"empty text", `{"text": ""}`},
		{"bad top_k", `{"text": "x", "top_k": 0}`},
		{"bad threshold", `{"text": "x", "threshold": 2}`},
		{"unknown field", `{"text": "x", "mode": "fast"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &stubRunner{}
			rec, body := do(t, newTestServer(t, runner), http.MethodPost, "/run", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errObj := body["error"].(map[string]any)
			assert.Equal(t, schema.ErrCodeValidation, errObj["code"])
			assert.NotEmpty(t, errObj["message"])
			assert.Empty(t, runner.got.Text)
		})
	}
}

func TestRun_QueryLevelErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{schema.NewError(schema.ErrCodeExtractionService, "POST /x: service returned 503"), http.StatusBadGateway, schema.ErrCodeExtractionService},
		{schema.NewError(schema.ErrCodeMalformedResponse, "bad shape"), http.StatusBadGateway, schema.ErrCodeMalformedResponse},
		{schema.NewError(schema.ErrCodeCircuitOpen, "open"), http.StatusBadGateway, schema.ErrCodeCircuitOpen},
		{schema.NewError(schema.ErrCodeValidation, "text: text is empty"), http.StatusBadRequest, schema.ErrCodeValidation},
		{errors.New("unexpected"), http.StatusInternalServerError, schema.ErrCodeInvocationFault},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			h := newTestServer(t, &stubRunner{err: tc.err})
			rec, body := do(t, h, http.MethodPost, "/run", `{"text": "add"}`)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, body["error"].(map[string]any)["code"])
		})
	}
}

func TestActions(t *testing.T) {
	rec, body := do(t, newTestServer(t, &stubRunner{}), http.MethodGet, "/actions", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	list := body["actions"].([]any)
	assert.Len(t, list, 13)
	first := list[0].(map[string]any)
	assert.Equal(t, "absolute_value", first["name"])
	assert.NotEmpty(t, first["params"])
}

func TestHealthz(t *testing.T) {
	rec, body := do(t, newTestServer(t, &stubRunner{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	rec := httptest.NewRecorder()
	newTestServer(t, &stubRunner{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
