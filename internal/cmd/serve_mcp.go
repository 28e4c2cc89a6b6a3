package cmd

import (
	"github.com/spf13/cobra"

	"emailbuilder/internal/app"
)

func serveMCPCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the builder to an AI agent over MCP on stdin/stdout.",
		Long: "serve-mcp exposes the block editor as MCP tools, resources and prompts. " +
			"Destructive actions wait for a decision made with the approvals command.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				return a.ServeMCP(cmd.Context())
			})
		},
	}
	return &cmd
}
