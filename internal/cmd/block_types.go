package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"emailbuilder/internal/registry"
)

func blockTypesCmd() *cobra.Command {
	var schema string

	cmd := cobra.Command{
		Use:     "block-types",
		Aliases: []string{"types"},
		Short:   "List the block types in the palette.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registry.Default
			if schema != "" {
				bt, ok := reg.Get(schema)
				if !ok {
					return fmt.Errorf("%w: %s", registry.ErrUnknownType, schema)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(bt.JSONSchema())
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tCATEGORY\tLIMIT\tPICKER\tCHILDREN")
			for _, cat := range registry.Categories {
				for _, bt := range reg.ListByCategory(cat) {
					limit := "-"
					if bt.MaxPerDocument > 0 {
						limit = fmt.Sprint(bt.MaxPerDocument)
					}
					picker := "-"
					if bt.PickKind != "" {
						picker = string(bt.PickKind)
					}
					children := "-"
					if bt.Container {
						children = strings.Join(bt.AllowedChildTypes, ",")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", bt.ID, bt.Name, bt.Category, limit, picker, children)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Print the JSON schema of one block type.")

	return &cmd
}
