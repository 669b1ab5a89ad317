package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyfeed/storyfeed/internal/config"
	"github.com/storyfeed/storyfeed/internal/logging"
	"github.com/storyfeed/storyfeed/internal/services"
)

var (
	version = "dev"
	commit  = "none"
)

var flagConfig string

const initTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:          "storyfeed",
	Short:        "Story ingestion and search service",
	Long:         "storyfeed imports stories from the HN search API into a record store and serves them over a REST API.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config", "directory containing config.yml")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(purgeCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "storyfeed %s (commit: %s)\n", version, commit)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, installs the logger and initializes a Manager.
// The returned cleanup shuts the manager down and flushes log files.
func setup(opts services.Options) (*config.Config, *services.Manager, func(), error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		return nil, nil, nil, err
	}

	mgr := services.NewManager(cfg, opts)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := mgr.Init(ctx); err != nil {
		_ = mgr.Shutdown(context.Background())
		_ = logging.Shutdown()
		return nil, nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := mgr.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
		_ = logging.Shutdown()
	}
	return cfg, mgr, cleanup, nil
}
