package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samir-bensayou/upwork-jobs-scraper/internal/app"
	"github.com/samir-bensayou/upwork-jobs-scraper/internal/scraper"
)

type scanOptions struct {
	keywords []string
	limit    int
	rotate   bool
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	scanOpts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := scraper.ScanRequest{
				Keywords: scanOpts.keywords,
				Limit:    scanOpts.limit,
				Rotate:   scanOpts.rotate,
			}
			if err := req.Validate(); err != nil {
				return fmt.Errorf("--keywords: %w", err)
			}

			services, err := app.New(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return fmt.Errorf("init services: %w", err)
			}
			defer func() {
				if err := services.Close(); err != nil {
					opts.logger.Warn("service close failed", zap.Error(err))
				}
			}()

			res, err := services.Coordinator.Scan(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			for _, failure := range res.Failures {
				opts.logger.Warn("keyword skipped", zap.String("keyword", failure.Keyword), zap.Error(failure.Err))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&scanOpts.keywords, "keywords", nil, "comma-separated search keywords")
	cmd.Flags().IntVar(&scanOpts.limit, "limit", 0, "maximum number of jobs to return (default from scan.default_limit)")
	cmd.Flags().BoolVar(&scanOpts.rotate, "rotate", false, "resume from and persist the rotation cursor")
	return cmd
}
