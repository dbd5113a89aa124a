package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/textaction/internal/actions"
	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/pkg/schema"
)

// Runner executes one query.
type Runner interface {
	RunWith(ctx context.Context, req pipeline.Request) (*schema.QueryResult, error)
}

// Lister lists the registered actions.
type Lister interface {
	List() []actions.ActionInfo
}

// ServerDeps holds the dependencies for creating a Server.
type ServerDeps struct {
	Runner  Runner
	Actions Lister
	Logger  *slog.Logger
	Version string
}

// Server wraps an MCP server with textaction tool handlers.
type Server struct {
	runner    Runner
	actions   Lister
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new Server with both tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		runner:  deps.Runner,
		actions: deps.Actions,
		logger:  logger,
	}

	mcpSrv := server.NewMCPServer(
		"textaction",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("textaction turns a natural-language command into calls of registered actions. Use textaction.run with the user's text to execute it and textaction.actions to see what can be executed."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: actionsTool(), Handler: s.handleActions},
	}
}

// --- Tool definitions ---

func runTool() mcp.Tool {
	return mcp.NewTool("textaction.run",
		mcp.WithDescription("Extract the actions named in a natural-language command and execute them"),
		mcp.WithString("text", mcp.Required(), mcp.Description("The command, e.g. \"add 3 and 4 then divide 10 by 2\"")),
		mcp.WithNumber("top_k", mcp.Description("Maximum number of candidate actions (default 1)")),
		mcp.WithNumber("threshold", mcp.Description("Minimum match score between 0 and 1 (default 0.45)")),
	)
}

func actionsTool() mcp.Tool {
	return mcp.NewTool("textaction.actions",
		mcp.WithDescription("List the registered actions and their parameters"),
	)
}
