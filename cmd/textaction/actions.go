package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rendis/textaction/internal/actions"
	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the registered actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, _, stack, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		return printActions(cmd.OutOrStdout(), stack.Registry.List(), jsonOutput)
	},
}

func printActions(w io.Writer, infos []actions.ActionInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"actions": infos})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		params := make([]string, 0, len(info.Params))
		for _, p := range info.Params {
			params = append(params, fmt.Sprintf("%s:%s", p.Name, p.Type))
		}
		fmt.Fprintf(tw, "%s\t(%s)\t%s\n", info.Name, strings.Join(params, ", "), info.Description)
	}
	return tw.Flush()
}
