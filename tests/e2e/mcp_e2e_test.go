package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rendis/textaction/internal/extraction"
	"github.com/rendis/textaction/internal/pipeline"
	textmcp "github.com/rendis/textaction/pkg/mcp"
	"github.com/rendis/textaction/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test infrastructure ---

// fakeService answers the combined endpoint with a canned body per command text.
type fakeService struct {
	bodies map[string]string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != extraction.DefaultCombinedPath {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	body, ok := f.bodies[req.Text]
	if !ok {
		body = `{"actions": [], "message": "no match"}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// testEnv holds the full stack behind a real MCP server.
type testEnv struct {
	stack  *pipeline.Stack
	server *textmcp.Server
}

func newTestEnv(t *testing.T, bodies map[string]string) *testEnv {
	t.Helper()

	svc := httptest.NewServer(&fakeService{bodies: bodies})
	t.Cleanup(svc.Close)

	cfg := extraction.DefaultConfig()
	cfg.BaseURL = svc.URL
	stack, err := pipeline.Bootstrap(pipeline.Options{Extraction: cfg})
	require.NoError(t, err)

	srv := textmcp.NewServer(textmcp.ServerDeps{
		Runner:  stack.Pipeline,
		Actions: stack.Registry,
		Version: "e2e",
	})
	return &testEnv{stack: stack, server: srv}
}

// callTool invokes a tool through the MCP server's HandleMessage (full JSON-RPC round-trip).
func (e *testEnv) callTool(t *testing.T, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	initMsg := map[string]any{
		"jsonrpc": "2.0",
		"id":      0,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "e2e-test",
				"version": "1.0.0",
			},
		},
	}
	rawInit, err := json.Marshal(initMsg)
	require.NoError(t, err)

	reqMsg := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	}
	rawReq, err := json.Marshal(reqMsg)
	require.NoError(t, err)

	ctx := context.Background()
	mcpSrv := e.server.MCPServer()

	require.NotNil(t, mcpSrv.HandleMessage(ctx, rawInit))
	resp := mcpSrv.HandleMessage(ctx, rawReq)
	require.NotNil(t, resp)

	respBytes, err := json.Marshal(resp)
	require.NoError(t, err)

	var rpcResp struct {
		Result *mcp.CallToolResult `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpcResp))

	if rpcResp.Error != nil {
		t.Fatalf("JSON-RPC error: code=%d, msg=%s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	require.NotNil(t, rpcResp.Result)
	return rpcResp.Result
}

// extractText extracts text content from a tool result.
func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func extractQueryResult(t *testing.T, result *mcp.CallToolResult) schema.QueryResult {
	t.Helper()
	var q schema.QueryResult
	require.NoError(t, json.Unmarshal([]byte(extractText(t, result)), &q))
	return q
}

// --- Tests ---

func TestMCP_RunCalculatorCommand(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"add 3 and 4, subtract 10 from 20, then divide 100 by 5": `{
			"actions": [
				{"action": "add", "args": {"values": [3, 4]}},
				{"action": "subtract", "args": {"a": 20, "b": 10}},
				{"action": "divide", "args": [100, 5]}
			],
			"message": "3 actions found"
		}`,
	})

	res := env.callTool(t, "textaction.run", map[string]any{
		"text": "add 3 and 4, subtract 10 from 20, then divide 100 by 5",
	})
	require.False(t, res.IsError, extractText(t, res))

	q := extractQueryResult(t, res)
	assert.NotEmpty(t, q.QueryID)
	assert.Equal(t, "3 actions found", q.Message)
	require.Len(t, q.Results, 3)

	want := []struct {
		action string
		output float64
	}{{"add", 7}, {"subtract", 10}, {"divide", 20}}
	for i, w := range want {
		assert.Equal(t, w.action, q.Results[i].Action)
		assert.Equal(t, schema.StatusSuccess, q.Results[i].Status)
		assert.Equal(t, w.output, q.Results[i].Output)
	}
}

func TestMCP_MalformedResponseIsToolError(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"add 3 and 4": `{"message": "missing the actions key"}`,
	})

	res := env.callTool(t, "textaction.run", map[string]any{"text": "add 3 and 4"})
	require.True(t, res.IsError)
	assert.Contains(t, extractText(t, res), schema.ErrCodeMalformedResponse)
}

func TestMCP_PerActionErrorsStayInResult(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"divide 1 by 0 and fly": `{"actions": [
			{"action": "divide", "args": {"a": 1, "b": 0}},
			{"action": "fly", "args": {}},
			{"action": "multiply", "args": {"values": ["4", "5", "6"]}}
		]}`,
	})

	res := env.callTool(t, "textaction.run", map[string]any{"text": "divide 1 by 0 and fly"})
	require.False(t, res.IsError, extractText(t, res))

	q := extractQueryResult(t, res)
	require.Len(t, q.Results, 3)

	require.NotNil(t, q.Results[0].Error)
	assert.Equal(t, schema.ErrCodeInvocationFault, q.Results[0].Error.Code)
	assert.Contains(t, strings.ToLower(q.Results[0].Error.Message), "division by zero")

	require.NotNil(t, q.Results[1].Error)
	assert.Equal(t, schema.ErrCodeActionNotFound, q.Results[1].Error.Code)

	assert.Equal(t, schema.StatusSuccess, q.Results[2].Status)
	assert.Equal(t, 120.0, q.Results[2].Output)
}

func TestMCP_NoActions(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.callTool(t, "textaction.run", map[string]any{"text": "hello there"})
	require.False(t, res.IsError)

	q := extractQueryResult(t, res)
	assert.Empty(t, q.Results)
	assert.Equal(t, "no match", q.Message)
}

func TestMCP_ListActions(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.callTool(t, "textaction.actions", map[string]any{})
	require.False(t, res.IsError)

	var body struct {
		Actions []struct {
			Name string `json:"name"`
		} `json:"actions"`
	}
	require.NoError(t, json.Unmarshal([]byte(extractText(t, res)), &body))
	assert.Len(t, body.Actions, len(env.stack.Registry.List()))
}
