package main

import (
	"github.com/spf13/cobra"

	"github.com/IshaanNene/ReviewGoat/internal/api"
	"github.com/IshaanNene/ReviewGoat/internal/engine"
	"github.com/IshaanNene/ReviewGoat/internal/observability"
	"github.com/IshaanNene/ReviewGoat/internal/storage"
)

var (
	servePort        int
	serveStore       bool
	serveSnapshotDir string
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scrape API over HTTP",
		Long: `Start the HTTP API:

  GET  /health    liveness, default mode and supported sources
  GET  /sources   source identifiers, aliases and modes
  POST /scrape    run one request and return the result document
  GET  /metrics   Prometheus metrics (metrics.enabled)`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default server.port)")
	cmd.Flags().BoolVar(&serveStore, "store", false, "persist every result to the configured storage")
	cmd.Flags().StringVar(&serveSnapshotDir, "snapshot-dir", "", "directory snapshot-mode requests may read from (default server.snapshot_dir)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveSnapshotDir != "" {
		cfg.Server.SnapshotDir = serveSnapshotDir
	}

	var (
		engineOpts []engine.Option
		serverOpts []api.Option
	)
	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(logger)
		engineOpts = append(engineOpts, engine.WithMetrics(metrics))
		serverOpts = append(serverOpts, api.WithMetrics(metrics, cfg.Metrics.Path))
	}
	if serveStore {
		store, err := storage.New(cmd.Context(), cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		serverOpts = append(serverOpts, api.WithStorage(store))
	}

	eng := engine.New(cfg, logger, engineOpts...)
	srv := api.NewServer(cfg.Server, eng, logger, serverOpts...)
	return srv.ListenAndServe(cmd.Context())
}
