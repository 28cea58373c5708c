package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/ReviewGoat/internal/config"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := types.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
	}
	stop()
	os.Exit(types.ExitCode(err))
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewgoat",
		Short: "ReviewGoat collects dated product reviews from software review directories",
		Long: `ReviewGoat collects product reviews for a company from G2, Capterra or
TrustRadius inside a date window and writes one normalized result document.

Acquisition modes:
  browser   drive a stealth Chromium through search, product and review pages
  api       read the G2 data API (needs an API token)
  crawler   hand the product URL to a hosted crawling service
  snapshot  parse a saved HTML page offline`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &types.ConfigurationError{Field: "flags", Message: err.Error(), Err: err}
	})

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(scrapeCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(snapshotCmd())
	root.AddCommand(sourcesCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())
	return root
}

// loadConfig reads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, &types.ConfigurationError{Field: "config", Message: err.Error(), Err: err}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, &types.ConfigurationError{Field: "config", Message: err.Error(), Err: err}
	}
	return cfg, observability.NewLogger(cfg.Logging, verbose), nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ReviewGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			masked := *cfg
			masked.API.Token = mask(cfg.API.Token)
			masked.Crawler.Token = mask(cfg.Crawler.Token)
			masked.Storage.RedisPassword = mask(cfg.Storage.RedisPassword)
			masked.Storage.MongoURI = mask(cfg.Storage.MongoURI)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&masked); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
