package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/report"
)

func newSubmitCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a URL for caching in both desktop and mobile variants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.coord.SubmitURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Submission(res))
			if !res.OK() {
				return errFailures
			}
			return nil
		},
	}
}
