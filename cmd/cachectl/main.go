package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// errFailures is returned after a report has been printed when any item of
// the action failed, so the process exits non-zero.
var errFailures = errors.New("one or more operations failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "cachectl",
		Short:         "cachectl manages a prerender cache's desktop and mobile entries",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to cachectl config file (default ./cachectl.yaml if present)")

	root.AddCommand(
		newSubmitCmd(&configPath),
		newBulkCmd(&configPath),
		newSitemapCmd(&configPath),
		newListCmd(&configPath),
		newDeleteCmd(&configPath),
		newRefreshCmd(&configPath),
		newClearCmd(&configPath),
		newHistoryCmd(&configPath),
		newMCPCmd(&configPath),
	)
	return root
}
