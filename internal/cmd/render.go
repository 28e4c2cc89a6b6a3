package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"emailbuilder/internal/app"
	"emailbuilder/internal/editor"
	"emailbuilder/internal/registry"
	"emailbuilder/internal/storage"
)

func renderCmd() *cobra.Command {
	var (
		file   string
		output string
	)

	cmd := cobra.Command{
		Use:   "render [template-id]",
		Short: "Render a saved template, or a block tree from a JSON file, to HTML.",
		Long: "render prints the email HTML for a saved template. With --file it reads a JSON array of " +
			"blocks instead. Templates whose HTML was edited by hand print the stored HTML.",
		Args: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) != 1 {
				return fmt.Errorf("expected a template id or --file")
			}
			if file != "" && len(args) > 0 {
				return fmt.Errorf("a template id and --file are mutually exclusive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				var (
					html string
					err  error
				)
				if file != "" {
					html, err = renderFile(cmd, a, file)
				} else {
					html, err = renderSaved(cmd, a, args[0])
				}
				if err != nil {
					return err
				}

				if output != "" {
					return os.WriteFile(output, []byte(html), 0o644)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the block tree from a JSON file.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write HTML to a file instead of stdout.")

	return &cmd
}

func renderSaved(cmd *cobra.Command, a *app.App, id string) (string, error) {
	t, err := a.Store().GetTemplate(cmd.Context(), id)
	if err != nil {
		return "", err
	}
	if len(t.Blocks) == 0 && t.HTML != "" {
		return t.HTML, nil
	}
	return a.Templates().Render(t.Blocks), nil
}

// renderFile reports lint problems on stderr; they do not stop rendering.
func renderFile(cmd *cobra.Command, a *app.App, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read blocks: %w", err)
	}
	blocks, err := storage.DecodeBlocks(string(data))
	if err != nil {
		return "", err
	}
	engine := editor.Load(registry.Default, blocks)
	reportLint(cmd, engine.Lint())
	return a.Templates().Render(engine.Blocks()), nil
}

func reportLint(cmd *cobra.Command, problems map[string]error) {
	ids := make([]string, 0, len(problems))
	for id := range problems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: block %s: %v\n", id, problems[id])
	}
}
