package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the cache actions as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var history mcp.History
			if a.journal != nil {
				history = a.journal
			}
			srv := mcp.New(a.coord, history, version)
			return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
