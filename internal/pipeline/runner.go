// Package pipeline wires the ingestion stages into a single sequential run:
// extract, load raw, verify, prefilter, classify, load filtered.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/config"
	"github.com/core-sentiment/pageviews-cli/internal/extract"
	"github.com/core-sentiment/pageviews-cli/internal/llmfilter"
	"github.com/core-sentiment/pageviews-cli/internal/model"
	"github.com/core-sentiment/pageviews-cli/internal/monitoring"
	"github.com/core-sentiment/pageviews-cli/internal/prefilter"
	"github.com/core-sentiment/pageviews-cli/internal/rules"
	"github.com/core-sentiment/pageviews-cli/internal/store"
)

// Runner executes the full pipeline against one dump file.
type Runner struct {
	cfg      *config.Config
	store    store.Store
	doc      *rules.Document
	backend  llmfilter.Backend
	notifier monitoring.Notifier
}

// NewRunner creates a Runner from its collaborators.
func NewRunner(cfg *config.Config, st store.Store, doc *rules.Document, backend llmfilter.Backend, notifier monitoring.Notifier) *Runner {
	return &Runner{cfg: cfg, store: st, doc: doc, backend: backend, notifier: notifier}
}

// Run processes one dump end to end. Stages run sequentially; the first fatal
// stage error aborts the run and emits a failure event. Classifier batch
// failures are not fatal (they degrade inside the orchestrator).
func (r *Runner) Run(ctx context.Context, gzPath string, processingDate time.Time) (*model.FilterResult, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("pipeline: run starting",
		zap.String("dump", gzPath),
		zap.String("processing_date", processingDate.Format("2006-01-02")),
	)

	result, err := r.execute(ctx, log, gzPath, processingDate)
	if err != nil {
		r.notify(ctx, monitoring.Event{
			Type:    monitoring.EventRunFailed,
			RunID:   runID,
			Message: "pageview pipeline run failed",
			Error:   err.Error(),
		})
		return nil, err
	}

	r.notify(ctx, monitoring.Event{
		Type:       monitoring.EventRunComplete,
		RunID:      runID,
		Message:    "pageview pipeline run complete",
		Statistics: &result.Statistics,
	})
	log.Info("pipeline: run complete",
		zap.Int("filtered_records", result.TotalRecords),
	)
	return result, nil
}

func (r *Runner) execute(ctx context.Context, log *zap.Logger, gzPath string, processingDate time.Time) (*model.FilterResult, error) {
	extractor := extract.New(r.cfg.Extract.ChunkSize, r.cfg.Extract.OutputDir)
	extracted, err := extractor.Extract(gzPath)
	if err != nil {
		return nil, err
	}

	loaded, err := r.store.LoadRaw(ctx, extracted.CSVPath, extracted.SourceFile, processingDate, r.cfg.Load.ChunkSize)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: raw layer loaded", zap.Int("rows", loaded.RowsLoaded))

	verification := r.store.Verify(ctx, extracted.SourceFile)
	if !verification.Verified {
		return nil, eris.Errorf("pipeline: raw load verification failed: %s", verification.Error)
	}
	log.Info("pipeline: raw load verified",
		zap.Int("record_count", verification.RecordCount),
		zap.Int("domain_count", verification.DomainCount),
		zap.Int64("total_views", verification.TotalViews),
	)

	filter, err := prefilter.New(r.doc, r.cfg.Prefilter.RuleSet, r.cfg.Prefilter.MinViews)
	if err != nil {
		return nil, err
	}
	records, err := extract.ReadArtifact(extracted.CSVPath)
	if err != nil {
		return nil, err
	}
	candidates, err := filter.Apply(records)
	if err != nil {
		return nil, err
	}

	orchestrator := llmfilter.NewOrchestrator(r.backend, r.cfg.Filter.BatchSize)
	result, err := orchestrator.Run(ctx, candidates)
	if err != nil {
		return nil, err
	}

	classified := store.ClassifiedFromResult(result, r.doc.Classify, processingDate)
	filteredLoad, err := r.store.LoadFiltered(ctx, classified)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: filtered layer loaded",
		zap.Int("rows", filteredLoad.RowsLoaded),
		zap.String("status", filteredLoad.Status),
	)

	return result, nil
}

func (r *Runner) notify(ctx context.Context, event monitoring.Event) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, event); err != nil {
		zap.L().Warn("pipeline: notification failed", zap.Error(err))
	}
}
