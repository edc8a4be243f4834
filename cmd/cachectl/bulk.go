package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/prerender-tools/cachectl/pkg/report"
)

func newBulkCmd(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Submit newline-delimited URLs from a file or stdin",
		Long: "Submit every non-blank line as a URL. Lines are trimmed; duplicate " +
			"lines are submitted once per occurrence.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readURLList(cmd, file)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.coord.SubmitBulk(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Batch(rep))
			if len(rep.Failed()) > 0 {
				return errFailures
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "file with one URL per line (- for stdin)")
	return cmd
}

func readURLList(cmd *cobra.Command, file string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return "", fmt.Errorf("open url list: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read url list: %w", err)
	}
	return string(data), nil
}
