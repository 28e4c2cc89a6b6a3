package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"emailbuilder/internal/app"
)

func pruneRevisionsCmd() *cobra.Command {
	var keep int

	cmd := cobra.Command{
		Use:   "prune-revisions",
		Short: "Delete old template revisions now.",
		Long:  "prune-revisions keeps the newest revisions of every template and deletes the rest.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				r := a.Retention(nil)
				if cmd.Flags().Changed("keep") {
					if keep < 1 {
						return fmt.Errorf("--keep must be at least 1")
					}
					r.SetKeep(keep)
				}
				n, err := r.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d revisions.\n", n)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Revisions to keep per template (default from config).")

	return &cmd
}
