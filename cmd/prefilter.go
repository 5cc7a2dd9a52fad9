package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/extract"
	"github.com/core-sentiment/pageviews-cli/internal/model"
	"github.com/core-sentiment/pageviews-cli/internal/prefilter"
	"github.com/core-sentiment/pageviews-cli/internal/rules"
)

var (
	prefilterInputPath  string
	prefilterOutputPath string
	prefilterFromDB     bool
	prefilterDate       string
)

var prefilterCmd = &cobra.Command{
	Use:   "prefilter",
	Short: "Apply the deterministic rule filter to extracted pageviews",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		doc, err := rules.Load()
		if err != nil {
			return eris.Wrap(err, "load rules")
		}
		filter, err := prefilter.New(doc, cfg.Prefilter.RuleSet, cfg.Prefilter.MinViews)
		if err != nil {
			return eris.Wrap(err, "init prefilter")
		}

		var records []model.RawRecord
		if prefilterFromDB {
			date, err := parseDate(prefilterDate)
			if err != nil {
				return err
			}
			st, err := initStore(ctx)
			if err != nil {
				return eris.Wrap(err, "init store")
			}
			defer st.Close() //nolint:errcheck

			// The traffic stage runs server-side; Apply re-checks it cheaply
			// and runs the remaining stages in memory.
			records, err = st.QueryRaw(ctx, date, filter.MinViews())
			if err != nil {
				return eris.Wrap(err, "query raw layer")
			}
		} else {
			records, err = extract.ReadArtifact(prefilterInputPath)
			if err != nil {
				return eris.Wrap(err, "read artifact")
			}
		}

		candidates, err := filter.Apply(records)
		if err != nil {
			return eris.Wrap(err, "prefilter")
		}

		if err := prefilter.WriteCandidates(prefilterOutputPath, candidates); err != nil {
			return eris.Wrap(err, "write candidates")
		}

		zap.L().Info("prefilter complete",
			zap.Int("candidates", len(candidates)),
			zap.String("output", prefilterOutputPath),
		)
		return nil
	},
}

func init() {
	prefilterCmd.Flags().StringVar(&prefilterInputPath, "input", "./data/all_pageviews.csv", "path to extraction artifact")
	prefilterCmd.Flags().StringVar(&prefilterOutputPath, "output", "./data/prefiltered_pageviews.csv", "path for the candidate CSV")
	prefilterCmd.Flags().BoolVar(&prefilterFromDB, "from-db", false, "read rows from the warehouse raw layer instead of the artifact")
	prefilterCmd.Flags().StringVar(&prefilterDate, "date", "", "processing date for --from-db (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(prefilterCmd)
}
