package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/c360studio/flowplan/workspace"
)

func workspacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List the built-in workspace dialects",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tBLOCKS")
			for _, ws := range workspace.Builtin() {
				fmt.Fprintf(w, "%s\t%s\t%d\n", ws.ID, ws.Name, len(ws.Blocks))
			}
			return w.Flush()
		},
	}
}
