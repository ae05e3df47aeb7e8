package main

import (
	"github.com/caarlos0/tablewriter"
	"github.com/spf13/cobra"

	"github.com/refgate/refgate/pkg/policy"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the recognized per-repository policy options",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return tablewriter.Render(
			cmd.OutOrStdout(),
			policy.Registry(),
			[]string{"Name", "Type", "Default", "Description"},
			func(o policy.Option) ([]string, error) {
				def := o.Default
				if def == "" {
					def = "-"
				}
				return []string{
					policy.Section + "." + o.Name,
					o.Kind.String(),
					def,
					o.Help,
				}, nil
			},
		)
	},
}
