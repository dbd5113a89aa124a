package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/pkg/schema"
)

// handleRun runs one query. Query-level failures become tool errors; per-action
// failures stay inside the returned result.
func (s *Server) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil || text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	preq := pipeline.Request{Text: text}
	args := req.GetArguments()
	if _, ok := args["top_k"]; ok {
		topK := req.GetInt("top_k", pipeline.DefaultTopK)
		preq.TopK = &topK
	}
	if _, ok := args["threshold"]; ok {
		threshold := req.GetFloat("threshold", pipeline.DefaultThreshold)
		preq.Threshold = &threshold
	}

	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.logger.DebugContext(ctx, "mcp run", slog.String("session_id", session.SessionID()))
	}

	q, err := s.runner.RunWith(ctx, preq)
	if err != nil {
		code := schema.CodeOf(err)
		if code == "" {
			code = schema.ErrCodeInvocationFault
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", code, err)), nil
	}
	return marshalResult(q)
}

func (s *Server) handleActions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return marshalResult(map[string]any{"actions": s.actions.List()})
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
