package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/config"
	"github.com/prerender-tools/cachectl/pkg/journal"
	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/report"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query and manage the operation journal",
	}

	cmd.AddCommand(
		newHistorySearchCmd(configPath),
		newHistoryStatsCmd(configPath),
		newHistoryCleanupCmd(configPath),
	)
	return cmd
}

func newHistorySearchCmd(configPath *string) *cobra.Command {
	var (
		action     string
		urlContain string
		failedOnly bool
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, cleanup, err := openJournal(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.JournalQueryOpts{
				Action:     models.Action(action),
				URLContain: urlContain,
				FailedOnly: failedOnly,
				Limit:      limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := j.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.JournalEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "filter by action (submit, bulk, sitemap, delete, refresh, clear)")
	cmd.Flags().StringVar(&urlContain, "url", "", "filter by URL substring")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only show failed calls")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newHistoryStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show journal statistics by action and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, cleanup, err := openJournal(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := j.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.JournalStats(stats))
			return nil
		},
	}
}

func newHistoryCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete journal entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, cleanup, err := openJournal(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := j.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d journal entries.\n", deleted)
			return nil
		},
	}
}

func openJournal(configPath string) (*journal.Journal, func(), error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, nil, errors.New("the operation journal is not enabled (set journal.enabled in the config)")
	}

	j, err := journal.New(cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal db: %w", err)
	}
	return j, func() { _ = j.Close() }, nil
}
