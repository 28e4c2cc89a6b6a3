package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"emailbuilder/internal/app"
)

func approvalsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "approvals",
		Short: "Review destructive actions requested by an MCP agent.",
	}

	cmd.AddCommand(approvalsListCmd())
	cmd.AddCommand(approvalsResolveCmd("approve", "Allow pending actions to run.", true))
	cmd.AddCommand(approvalsResolveCmd("reject", "Refuse pending actions.", false))

	return &cmd
}

func approvalsListCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List pending approvals.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				pending, err := a.Approvals().Pending(cmd.Context())
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No pending approvals.")
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTOOL\tDESCRIPTION\tREQUESTED")
				for _, p := range pending {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Tool, p.Description, p.CreatedAt.Format(time.TimeOnly))
				}
				return w.Flush()
			})
		},
	}
	return &cmd
}

func approvalsResolveCmd(verb, short string, approved bool) *cobra.Command {
	cmd := cobra.Command{
		Use:   verb + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				for _, id := range args {
					if err := a.Approvals().Resolve(cmd.Context(), id, approved); err != nil {
						return fmt.Errorf("%s %s: %w", verb, id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %sd\n", id, verb)
				}
				return nil
			})
		},
	}
	return &cmd
}
