package cmd

import (
	"github.com/spf13/cobra"

	"emailbuilder/internal/app"
)

var (
	configPath string
	logLevel   string
)

func Root() *cobra.Command {
	cmd := cobra.Command{
		Use:           "emailbuilder",
		Short:         "Build store email templates from blocks",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVar(&configPath, "config", "", "Path to the config file (default is the user config directory).")
	pflags.StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error).")

	cmd.AddCommand(serveMCPCmd())
	cmd.AddCommand(renderCmd())
	cmd.AddCommand(blockTypesCmd())
	cmd.AddCommand(templatesCmd())
	cmd.AddCommand(approvalsCmd())
	cmd.AddCommand(pruneRevisionsCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(catalogCmd())

	return &cmd
}

func openApp() (*app.App, error) {
	return app.New(app.Options{ConfigPath: configPath, LogLevel: logLevel})
}

// withApp opens the app for one command and closes it afterwards.
func withApp(fn func(a *app.App) error) (err error) {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
