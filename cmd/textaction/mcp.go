package main

import (
	"os"
	"os/signal"
	"syscall"

	textmcp "github.com/rendis/textaction/pkg/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve textaction tools over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, logger, stack, err := bootstrap(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := textmcp.NewServer(textmcp.ServerDeps{
			Runner:  stack.Pipeline,
			Actions: stack.Registry,
			Logger:  logger,
			Version: version,
		})
		return srv.Serve(ctx)
	},
}
