package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/monitoring"
	"github.com/core-sentiment/pageviews-cli/internal/pipeline"
	"github.com/core-sentiment/pageviews-cli/internal/rules"
)

var (
	runDumpPath string
	runDate     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: extract, load raw, verify, prefilter, classify, load filtered",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		date, err := parseDate(runDate)
		if err != nil {
			return err
		}

		doc, err := rules.Load()
		if err != nil {
			return eris.Wrap(err, "load rules")
		}

		backend, err := initBackend()
		if err != nil {
			return eris.Wrap(err, "init backend")
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		notifier := monitoring.NewWebhookNotifier(cfg.Notify.WebhookURL)
		runner := pipeline.NewRunner(cfg, st, doc, backend, notifier)

		result, err := runner.Run(ctx, runDumpPath, date)
		if err != nil {
			return eris.Wrap(err, "run pipeline")
		}

		zap.L().Info("pipeline run complete",
			zap.Int("filtered_records", result.TotalRecords),
			zap.Float64("kept_rate_pct", result.Statistics.KeptRatePct),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDumpPath, "dump", "", "path to gzip pageview dump (required)")
	runCmd.Flags().StringVar(&runDate, "date", "", "processing date (YYYY-MM-DD, default today)")
	_ = runCmd.MarkFlagRequired("dump")
	rootCmd.AddCommand(runCmd)
}
