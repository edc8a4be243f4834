package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/report"
)

func newClearCmd(configPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every URL in the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the cache without --yes")
			}

			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.coord.ClearAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("error clearing cache: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Clear(rep))
			if len(rep.Failures) > 0 {
				return errFailures
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the whole cache")
	return cmd
}
