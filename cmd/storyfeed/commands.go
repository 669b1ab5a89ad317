package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyfeed/storyfeed/internal/services"
)

var (
	flagNoAPI    bool
	flagNoIngest bool
)

func init() {
	serveCmd.Flags().BoolVar(&flagNoAPI, "no-api", false, "do not serve the REST API")
	serveCmd.Flags().BoolVar(&flagNoIngest, "no-ingest", false, "do not run periodic ingestion")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and the ingestion scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, cleanup, err := setup(services.Options{
			RunAPI:       !flagNoAPI,
			RunScheduler: !flagNoIngest,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		bgCtx, bgCancel := context.WithCancel(context.Background())
		defer bgCancel()

		if err := mgr.Start(bgCtx); err != nil {
			return err
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		var runErr error
		select {
		case sig := <-quit:
			slog.Info("Received signal, shutting down", "signal", sig.String())
		case runErr = <-mgr.Errors():
		}

		bgCancel()
		return runErr
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run a single ingestion cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, cleanup, err := setup(services.Options{})
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := mgr.Cursor().RunCycle(cmd.Context())
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d items (fetched %d, rejected %d) in %s\n",
			res.Imported, res.Fetched, res.Rejected, res.Duration.Round(time.Millisecond))
		if res.LowerBound != "" {
			fmt.Fprintf(out, "Lower bound: %s\n", res.LowerBound)
		}
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every stored article",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, cleanup, err := setup(services.Options{})
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := mgr.Engine().DeleteAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}

		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to purge.")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d article(s).\n", n)
		}
		return nil
	},
}
