package main

import (
	"context"
	"io"
	"strings"

	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/internal/report"
	"github.com/rendis/textaction/pkg/schema"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <text...>",
	Short: "Run a single command",
	Example: `  textaction run "add 3 and 4 then divide 10 by 2"
  textaction run --json multiply 4, 5 and 6`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, stack, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		q, err := stack.Pipeline.Run(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), q, jsonOutput)
	},
}

// queryRunner is the slice of the pipeline the CLI needs.
type queryRunner interface {
	RunWith(ctx context.Context, req pipeline.Request) (*schema.QueryResult, error)
}

func render(w io.Writer, q *schema.QueryResult, asJSON bool) error {
	if asJSON {
		return report.RenderJSON(w, q)
	}
	return report.RenderText(w, q)
}
