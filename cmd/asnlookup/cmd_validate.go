package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"asnlookup/internal/config"
	"asnlookup/internal/rangeindex"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Parse a dataset file and report malformed lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfig().Dataset.FilePath
			if len(args) == 1 {
				path = args[0]
			}

			stats, err := validateDataset(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d lines, %d ranges, %d skipped, %d malformed\n",
				path, stats.Lines, stats.Inserted, stats.Skipped, stats.Malformed)

			if stats.Malformed > 0 {
				return fmt.Errorf("%s contains %d malformed ranges", path, stats.Malformed)
			}
			return nil
		},
	}
}

func validateDataset(path string) (rangeindex.LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return rangeindex.LoadStats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return rangeindex.Load(f, rangeindex.NewBucketIndex(), path)
}
