package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/flowplan/flow"
	"github.com/c360studio/flowplan/workspace"
)

func validateCmd(logLevel *string) *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "validate [flags] <flow.yaml>...",
		Short: "Check flow documents for structural errors",
		Long: `Validate normalizes each document against the workspace's block
catalog without producing PlanSpace output. Problems are reported
per document; the exit status is non-zero when any document fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(*logLevel, "")

			var ws *workspace.Workspace
			for _, candidate := range workspace.Builtin() {
				if candidate.ID == workspaceID {
					ws = candidate
					break
				}
			}
			if ws == nil {
				return fmt.Errorf("unknown workspace %q", workspaceID)
			}

			known := ws.BlockNames()
			failures := 0
			for _, path := range args {
				if err := validateFile(path, known); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					failures++
					continue
				}
				fmt.Printf("%s: ok\n", path)
			}

			if failures > 0 {
				return fmt.Errorf("%d of %d documents invalid", failures, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", workspace.IDProtocols, "Workspace dialect to validate against")

	return cmd
}

func validateFile(path string, known map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	_, err = flow.Normalize(data, known)

	// Spell out the common problems for nicer CLI output.
	var unknown *flow.UnknownBlockError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &unknown):
		return fmt.Errorf("unknown block %q", unknown.Name)
	default:
		return err
	}
}
