package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/pkg/schema"
	"github.com/spf13/cobra"
)

const replPrompt = "Enter a command (or 'quit' to exit): "

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read commands interactively until 'quit'",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _, stack, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		return repl(cmd.Context(), stack.Pipeline, cmd.InOrStdin(), cmd.OutOrStdout(), jsonOutput)
	},
}

// repl reads one command per line. A query-level failure is printed and the
// loop continues; it ends on "quit", end of input or context cancellation.
func repl(ctx context.Context, runner queryRunner, in io.Reader, out io.Writer, asJSON bool) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(out, replPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "quit") {
			return nil
		}
		if line == "" {
			continue
		}

		q, err := runner.RunWith(ctx, pipeline.Request{Text: line})
		if err != nil {
			code := schema.CodeOf(err)
			if code == "" {
				code = schema.ErrCodeInvocationFault
			}
			fmt.Fprintf(out, "error [%s] %v\n", code, err)
			continue
		}
		if err := render(out, q, asJSON); err != nil {
			return err
		}
	}
}
