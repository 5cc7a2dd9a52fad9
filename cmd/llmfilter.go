package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/llmfilter"
	"github.com/core-sentiment/pageviews-cli/internal/prefilter"
)

var (
	llmfilterInputPath  string
	llmfilterOutputPath string
)

var llmfilterCmd = &cobra.Command{
	Use:   "llmfilter",
	Short: "Classify rule-filter candidates through the LLM backend in batches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		candidates, err := prefilter.ReadCandidates(llmfilterInputPath)
		if err != nil {
			return eris.Wrap(err, "read candidates")
		}

		backend, err := initBackend()
		if err != nil {
			return eris.Wrap(err, "init backend")
		}

		orchestrator := llmfilter.NewOrchestrator(backend, cfg.Filter.BatchSize)
		result, err := orchestrator.Run(ctx, candidates)
		if err != nil {
			return eris.Wrap(err, "llmfilter")
		}

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		if err := os.WriteFile(llmfilterOutputPath, payload, 0o644); err != nil {
			return eris.Wrap(err, "write result")
		}

		zap.L().Info("llmfilter complete",
			zap.Int("output_records", result.TotalRecords),
			zap.Int("failed_batches", result.Statistics.FailedBatches),
			zap.String("output", llmfilterOutputPath),
		)
		return nil
	},
}

func init() {
	llmfilterCmd.Flags().StringVar(&llmfilterInputPath, "input", "./data/prefiltered_pageviews.csv", "path to candidate CSV")
	llmfilterCmd.Flags().StringVar(&llmfilterOutputPath, "output", "./data/filtered_result.json", "path for the aggregated result JSON")
	rootCmd.AddCommand(llmfilterCmd)
}
