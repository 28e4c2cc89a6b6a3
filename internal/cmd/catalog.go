package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"emailbuilder/internal/app"
)

func catalogCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "catalog",
		Short: "Manage the store catalog connection used by pickers.",
	}
	cmd.AddCommand(catalogSetPasswordCmd())
	return &cmd
}

func catalogSetPasswordCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "set-password",
		Short: "Read the catalog password from stdin and keep it in the Keychain.",
		Long: "set-password stores the password for the configured catalog so it can be left out of the " +
			"config file. It is used whenever the catalog section has a username and no password.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				return fmt.Errorf("empty password")
			}
			return withApp(func(a *app.App) error {
				if err := a.SetCatalogPassword(password); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Catalog password saved.")
				return err
			})
		},
	}
	return &cmd
}
