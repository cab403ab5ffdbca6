package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"asnlookup/internal/database"
	"asnlookup/internal/domain"
	"asnlookup/internal/rangeindex"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ip_ranges table with the ranges of a dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ranges, malformed, err := readDatasetRanges(args[0])
			if err != nil {
				return err
			}

			db, err := database.SetupDB()
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := database.ReplaceDatasetRanges(commandContext(cmd), db, ranges); err != nil {
				return err
			}
			log.Info("Dataset imported", "file", args[0], "ranges", len(ranges), "malformed", malformed)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d ranges (%d malformed skipped)\n", len(ranges), malformed)
			return nil
		},
	}
}

// readDatasetRanges parses a dataset file into rows, dropping lines whose
// range does not parse.
func readDatasetRanges(path string) ([]domain.DatasetRange, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var (
		ranges    []domain.DatasetRange
		malformed int
	)
	err = rangeindex.ScanLines(f, func(text string, oversized bool) {
		if oversized {
			malformed++
			return
		}
		cidr, isp, asn, ok := rangeindex.ParseLine(text)
		if !ok {
			return
		}
		if _, _, err := rangeindex.ParseCIDR(cidr); err != nil {
			malformed++
			return
		}
		ranges = append(ranges, domain.DatasetRange{CIDR: cidr, ISP: isp, ASN: asn})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read dataset: %w", err)
	}
	return ranges, malformed, nil
}
