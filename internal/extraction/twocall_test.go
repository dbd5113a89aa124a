package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rendis/textaction/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoCallService fakes the name-only and argument-only endpoints and records
// what the arguments endpoint received.
type twoCallService struct {
	names     string
	arguments string

	mu       sync.Mutex
	argsReqs []map[string]any
	paths    []string
}

func (s *twoCallService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.paths = append(s.paths, r.URL.Path)
	s.mu.Unlock()

	switch r.URL.Path {
	case DefaultNamesPath:
		respond(s.names)(w, r)
	case DefaultArgumentsPath:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.argsReqs = append(s.argsReqs, body)
		s.mu.Unlock()
		respond(s.arguments)(w, r)
	default:
		http.NotFound(w, r)
	}
}

func twoCall(cfg *Config) { cfg.Mode = ModeTwoCall }

func TestTwoCall_NamesThenArguments(t *testing.T) {
	svc := &twoCallService{
		names:     `["add", "divide"]`,
		arguments: `{"add": {"values": [3, 4]}, "divide": {"a": 100, "b": 5}}`,
	}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ext, err := newClient(t, srv, twoCall).Extract(context.Background(), defaultReq)
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultNamesPath, DefaultArgumentsPath}, svc.paths)
	require.Len(t, ext.Actions, 2)
	assert.Equal(t, "add", ext.Actions[0].Action)
	assert.Equal(t, []any{json.Number("3"), json.Number("4")}, ext.Actions[0].Args.Named["values"])
	assert.Equal(t, "divide", ext.Actions[1].Action)

	require.Len(t, svc.argsReqs, 1)
	assert.Equal(t, defaultReq.Text, svc.argsReqs[0]["text"])

	// functions_args_dict travels as a JSON-encoded string.
	dict, ok := svc.argsReqs[0]["functions_args_dict"].(string)
	require.True(t, ok)
	var decoded map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(dict), &decoded))
	assert.Equal(t, map[string]string{"a": "number", "b": "number"}, decoded["divide"])
}

func TestTwoCall_ObjectNamesAndWrappedArguments(t *testing.T) {
	args, err := json.Marshal(`{"add": [1, 2]}`)
	require.NoError(t, err)

	svc := &twoCallService{
		names:     `{"actions": ["add"], "message": "one match"}`,
		arguments: string(args),
	}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ext, err := newClient(t, srv, twoCall).Extract(context.Background(), defaultReq)
	require.NoError(t, err)
	assert.Equal(t, "one match", ext.Message)
	require.Len(t, ext.Actions, 1)
	assert.True(t, ext.Actions[0].Args.IsPositional())
}

func TestTwoCall_UnknownNameStillEmitted(t *testing.T) {
	svc := &twoCallService{
		names:     `["teleport", "add"]`,
		arguments: `{"add": {"values": [1]}}`,
	}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ext, err := newClient(t, srv, twoCall).Extract(context.Background(), defaultReq)
	require.NoError(t, err)
	require.Len(t, ext.Actions, 2)
	assert.Equal(t, "teleport", ext.Actions[0].Action)
	assert.Equal(t, 0, ext.Actions[0].Args.Len())
	assert.Equal(t, "add", ext.Actions[1].Action)
}

func TestTwoCall_OnlyUnknownNamesSkipsArgumentCall(t *testing.T) {
	svc := &twoCallService{names: `["teleport"]`, arguments: `{}`}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ext, err := newClient(t, srv, twoCall).Extract(context.Background(), defaultReq)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultNamesPath}, svc.paths)
	require.Len(t, ext.Actions, 1)
}

func TestTwoCall_NoNames(t *testing.T) {
	svc := &twoCallService{names: `[]`}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	ext, err := newClient(t, srv, twoCall).Extract(context.Background(), defaultReq)
	require.NoError(t, err)
	assert.Empty(t, ext.Actions)
	assert.Len(t, svc.paths, 1)
}

func TestTwoCall_MalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		svc      *twoCallService
		endpoint string
	}{
		{"names not a list", &twoCallService{names: `{"names": "add"}`}, DefaultNamesPath},
		{"arguments not an object", &twoCallService{names: `["add"]`, arguments: `[1, 2]`}, DefaultArgumentsPath},
		{"arguments scalar entry", &twoCallService{names: `["add"]`, arguments: `{"add": 3}`}, DefaultArgumentsPath},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.svc)
			defer srv.Close()

			ext, err := newClient(t, srv, twoCall).Extract(context.Background(), defaultReq)
			assert.Nil(t, ext)
			se := requireCode(t, err, schema.ErrCodeMalformedResponse)
			assert.Equal(t, tc.endpoint, se.Details["endpoint"])
		})
	}
}

func TestTwoCall_ArgumentsEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultNamesPath {
			respond(`["add"]`)(w, r)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv, twoCall).Extract(context.Background(), defaultReq)
	se := requireCode(t, err, schema.ErrCodeExtractionService)
	assert.Contains(t, se.Message, DefaultArgumentsPath)
	assert.Contains(t, se.Message, "500")
}

func TestTwoCall_CustomEndpoints(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v2/names" {
			respond(`["add"]`)(w, r)
			return
		}
		respond(`{"add": [1, 2]}`)(w, r)
	}))
	defer srv.Close()

	c := newClient(t, srv, func(cfg *Config) {
		cfg.Mode = ModeTwoCall
		cfg.Endpoints = Endpoints{Names: "/v2/names", Arguments: "/v2/args"}
	})
	_, err := c.Extract(context.Background(), defaultReq)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v2/names", "/v2/args"}, paths)
}
