// Package model defines the record types flowing through the pageview pipeline.
package model

import "time"

// RawRecord is one extracted pageview row. Identity is positional until the
// row is loaded, after which the warehouse tags it with source_file and
// loaded_at. Unparsable view counts are coerced to 0, never dropped.
type RawRecord struct {
	Domain    string `json:"domain"`
	PageTitle string `json:"page_title"`
	Views     int    `json:"count_views"`
}

// CandidateRecord is a raw record that survived all rule stages, labeled with
// the company its title matched. Transient: it exists only for the duration of
// one pipeline run and is never persisted directly.
type CandidateRecord struct {
	RawRecord
	Company string `json:"company"`
}

// ClassifiedRecord is a classifier-approved row destined for the filtered
// layer. Append-only; reruns on the same processing date accumulate rows
// distinguished by FilteredAt.
type ClassifiedRecord struct {
	Domain         string    `json:"domain"`
	PageTitle      string    `json:"page_title"`
	Views          int       `json:"count_views"`
	Company        string    `json:"company"`
	FilteredAt     time.Time `json:"filtered_at"`
	ProcessingDate time.Time `json:"processing_date"`
	FilterMethod   string    `json:"filter_method"`
}

// ExtractResult describes a validated extraction artifact.
type ExtractResult struct {
	CSVPath     string `json:"csv_path"`
	SourceFile  string `json:"source_file"`
	RecordCount int    `json:"record_count"`
}

// FilterStatistics summarizes one classifier run across all batches.
type FilterStatistics struct {
	InputRecords      int     `json:"input_records"`
	OutputRecords     int     `json:"output_records"`
	RemovedRecords    int     `json:"removed_records"`
	FilterRatePct     float64 `json:"filter_rate_pct"`
	KeptRatePct       float64 `json:"kept_rate_pct"`
	SuccessfulBatches int     `json:"successful_batches"`
	FailedBatches     int     `json:"failed_batches"`
}

// FilterResult is the aggregated output of the batch classification run.
// Records preserves batch order; CSV is the synthesized tabular rendering.
type FilterResult struct {
	Records      []RawRecord      `json:"json_output"`
	CSV          string           `json:"csv_output"`
	TotalRecords int              `json:"total_records"`
	FilterMethod string           `json:"filter_method"`
	Statistics   FilterStatistics `json:"statistics"`
}

// LoadResult reports the outcome of a warehouse load operation.
type LoadResult struct {
	RowsLoaded int    `json:"rows_loaded"`
	SourceFile string `json:"source_file,omitempty"`
	Status     string `json:"status"`
}

// Verification is the result of re-querying the raw layer after a load.
// Verified is false (with Error set) on any query failure; the verify path
// never raises.
type Verification struct {
	SourceFile  string `json:"source_file"`
	RecordCount int    `json:"record_count"`
	DomainCount int    `json:"domain_count"`
	TotalViews  int64  `json:"total_views"`
	LoadTime    string `json:"load_time,omitempty"`
	Verified    bool   `json:"verified"`
	Error       string `json:"error,omitempty"`
}
