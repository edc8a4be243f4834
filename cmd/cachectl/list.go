package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/report"
)

func newListCmd(configPath *string) *cobra.Command {
	var (
		variant string
		search  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached URLs and their variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			var v models.Variant
			if variant != "all" {
				parsed, err := models.ParseVariant(variant)
				if err != nil {
					return err
				}
				v = parsed
			}

			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.coord.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Snapshot(snap.Filter(v, search)))
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "all", "variant to show: all, desktop or mobile")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive URL substring")
	return cmd
}
