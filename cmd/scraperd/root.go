package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/config"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/logging"
)

// rootOptions carries state shared by every subcommand once the persistent
// pre-run has loaded it.
type rootOptions struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "scraperd",
		Short: "Scrapes job listings from search results through a persistent browser session.",
		Long: `scraperd drives a single Chrome profile through search result pages,
waits out browser challenges, and returns the listed jobs as JSON. It can run
as an HTTP service, on a cron schedule, or as a one-off scan.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger == nil {
				return
			}
			if err := opts.logger.Sync(); err != nil {
				fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newScanCmd(opts))
	return cmd
}
