package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

func newVehiclesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles",
		Short: "List the selectable vehicles in the feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := opts.build(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			vehicles, err := deps.Loader.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load %s: %w", deps.Loader.Source, err)
			}

			table := uitable.New()
			table.MaxColWidth = 40
			table.AddRow("NAME", "VIN", "MODEL", "YEAR", "ID")
			for _, v := range vehicles {
				table.AddRow(v.Name, v.VIN, v.Model, v.Year, v.VehicleID)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), table)
			return err
		},
	}
}
