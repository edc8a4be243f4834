package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/report"
)

func newSitemapCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sitemap <sitemap-url>",
		Short: "Submit every URL in a sitemap that is not cached yet",
		Long: "Fetch the sitemap, read the cache, and submit the sitemap URLs that " +
			"have no cached entry. Any cached variant counts, even an expired one.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.coord.CacheSitemap(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Sitemap(rep))
			if len(rep.Batch.Failed()) > 0 {
				return errFailures
			}
			return nil
		},
	}
}
