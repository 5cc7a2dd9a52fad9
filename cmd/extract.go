package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/extract"
)

var extractDumpPath string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a gzip pageview dump into the raw CSV artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		extractor := extract.New(cfg.Extract.ChunkSize, cfg.Extract.OutputDir)

		result, err := extractor.Extract(extractDumpPath)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		zap.L().Info("extract complete",
			zap.String("csv_path", result.CSVPath),
			zap.String("source_file", result.SourceFile),
			zap.Int("record_count", result.RecordCount),
		)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractDumpPath, "dump", "", "path to gzip pageview dump (required)")
	_ = extractCmd.MarkFlagRequired("dump")
	rootCmd.AddCommand(extractCmd)
}
