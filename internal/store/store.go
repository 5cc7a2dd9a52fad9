// Package store persists pageview records in the warehouse: an append-only
// raw layer fed by bulk loads, and an append-only filtered layer holding
// classifier-approved rows.
package store

import (
	"context"
	"time"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// unknownValue replaces missing domain or title values before loading; the
// raw layer never stores empty identity columns.
const unknownValue = "unknown"

// Store defines the warehouse operations of the ingestion pipeline.
type Store interface {
	// LoadRaw streams the extraction artifact at csvPath into the raw layer
	// in chunks of chunkSize rows, all inside one transaction.
	LoadRaw(ctx context.Context, csvPath, sourceFile string, processingDate time.Time, chunkSize int) (*model.LoadResult, error)

	// Verify re-queries the raw layer for the given source file. Query
	// failures are reported inside the Verification, never returned.
	Verify(ctx context.Context, sourceFile string) *model.Verification

	// QueryRaw returns the raw rows of a processing date at or above the
	// traffic threshold, for the warehouse-backed prefilter path.
	QueryRaw(ctx context.Context, processingDate time.Time, minViews int) ([]model.RawRecord, error)

	// LoadFiltered appends classifier-approved rows to the filtered layer in
	// one bulk write. Empty input short-circuits without touching the store.
	LoadFiltered(ctx context.Context, records []model.ClassifiedRecord) (*model.LoadResult, error)

	Migrate(ctx context.Context) error
	Close() error
}

// ClassifiedFromResult tags aggregated classifier survivors for the filtered
// layer: company label via classify, plus the filtered_at / processing_date /
// filter_method columns.
func ClassifiedFromResult(result *model.FilterResult, classify func(string) string, processingDate time.Time) []model.ClassifiedRecord {
	if result == nil || len(result.Records) == 0 {
		return nil
	}
	filteredAt := time.Now().UTC()
	out := make([]model.ClassifiedRecord, len(result.Records))
	for i, r := range result.Records {
		out[i] = model.ClassifiedRecord{
			Domain:         r.Domain,
			PageTitle:      r.PageTitle,
			Views:          r.Views,
			Company:        classify(r.PageTitle),
			FilteredAt:     filteredAt,
			ProcessingDate: processingDate,
			FilterMethod:   result.FilterMethod,
		}
	}
	return out
}
