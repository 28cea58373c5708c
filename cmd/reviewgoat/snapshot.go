package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ReviewGoat/internal/fetcher"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var snapshotFlags requestFlags

// snapshotCmd groups the offline snapshot subcommands.
func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Work with saved HTML pages",
	}
	cmd.AddCommand(snapshotParseCmd())
	cmd.AddCommand(snapshotFetchCmd())
	return cmd
}

func snapshotParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract reviews from a saved page without a browser",
		Long: `Parse a saved HTML page using its embedded structured data (JSON-LD or
microdata) and run the usual normalization and date filtering. The company
defaults to the file name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshotFlags.mode = string(types.ModeSnapshot)
			snapshotFlags.snapshot = args[0]
			if snapshotFlags.company == "" {
				base := filepath.Base(args[0])
				snapshotFlags.company = strings.TrimSuffix(base, filepath.Ext(base))
			}
			return runScrape(cmd, &snapshotFlags)
		},
	}
	snapshotFlags.register(cmd.Flags())
	return cmd
}

func snapshotFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url> <file>",
		Short: "Download a page over plain HTTP for later parsing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			f, err := fetcher.NewHTTPFetcher(cfg, logger)
			if err != nil {
				return fmt.Errorf("create fetcher: %w", err)
			}
			defer f.Close()

			snap, err := f.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := fetcher.Save(snap, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes) to %s\n", snap.URL, len(snap.Body), args[1])
			return nil
		},
	}
}
