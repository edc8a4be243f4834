package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/report"
)

func newDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete every cached variant of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.coord.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache deleted for %s.\n", args[0])
			return nil
		},
	}
}

func newRefreshCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <url>",
		Short: "Delete a URL from the cache and resubmit it",
		Long:  "Delete every variant of the URL, then resubmit it. Nothing is resubmitted if the delete fails.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.coord.Refresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Refresh(rep))
			if !rep.Submission.OK() {
				return errFailures
			}
			return nil
		},
	}
}
