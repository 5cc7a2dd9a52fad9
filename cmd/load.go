package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/model"
	"github.com/core-sentiment/pageviews-cli/internal/rules"
	"github.com/core-sentiment/pageviews-cli/internal/store"
)

var (
	loadRawInputPath  string
	loadRawSourceFile string
	loadRawDate       string

	verifySourceFile string

	loadFilteredInputPath string
	loadFilteredDate      string
)

var loadRawCmd = &cobra.Command{
	Use:   "load-raw",
	Short: "Bulk-load the extraction artifact into the warehouse raw layer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		date, err := parseDate(loadRawDate)
		if err != nil {
			return err
		}
		sourceFile := loadRawSourceFile
		if sourceFile == "" {
			sourceFile = filepath.Base(loadRawInputPath)
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		result, err := st.LoadRaw(ctx, loadRawInputPath, sourceFile, date, cfg.Load.ChunkSize)
		if err != nil {
			return eris.Wrap(err, "load raw")
		}

		zap.L().Info("raw load complete",
			zap.Int("rows_loaded", result.RowsLoaded),
			zap.String("source_file", result.SourceFile),
		)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a raw load by re-querying the warehouse",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		v := st.Verify(ctx, verifySourceFile)
		if !v.Verified {
			zap.L().Error("verification failed",
				zap.String("source_file", v.SourceFile),
				zap.String("error", v.Error),
			)
			return eris.Errorf("verification failed for %s: %s", v.SourceFile, v.Error)
		}

		zap.L().Info("verification passed",
			zap.String("source_file", v.SourceFile),
			zap.Int("record_count", v.RecordCount),
			zap.Int("domain_count", v.DomainCount),
			zap.Int64("total_views", v.TotalViews),
			zap.String("load_time", v.LoadTime),
		)
		return nil
	},
}

var loadFilteredCmd = &cobra.Command{
	Use:   "load-filtered",
	Short: "Append classifier survivors to the warehouse filtered layer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		date, err := parseDate(loadFilteredDate)
		if err != nil {
			return err
		}

		payload, err := os.ReadFile(loadFilteredInputPath)
		if err != nil {
			return eris.Wrap(err, "read result file")
		}
		var result model.FilterResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return eris.Wrap(err, "parse result file")
		}

		doc, err := rules.Load()
		if err != nil {
			return eris.Wrap(err, "load rules")
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		classified := store.ClassifiedFromResult(&result, doc.Classify, date)
		loaded, err := st.LoadFiltered(ctx, classified)
		if err != nil {
			return eris.Wrap(err, "load filtered")
		}

		zap.L().Info("filtered load complete",
			zap.Int("rows_loaded", loaded.RowsLoaded),
			zap.String("status", loaded.Status),
		)
		return nil
	},
}

func init() {
	loadRawCmd.Flags().StringVar(&loadRawInputPath, "input", "./data/all_pageviews.csv", "path to extraction artifact")
	loadRawCmd.Flags().StringVar(&loadRawSourceFile, "source-file", "", "original dump filename (default: input basename)")
	loadRawCmd.Flags().StringVar(&loadRawDate, "date", "", "processing date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(loadRawCmd)

	verifyCmd.Flags().StringVar(&verifySourceFile, "source-file", "", "source file to verify (required)")
	_ = verifyCmd.MarkFlagRequired("source-file")
	rootCmd.AddCommand(verifyCmd)

	loadFilteredCmd.Flags().StringVar(&loadFilteredInputPath, "input", "./data/filtered_result.json", "path to aggregated result JSON")
	loadFilteredCmd.Flags().StringVar(&loadFilteredDate, "date", "", "processing date (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(loadFilteredCmd)
}
