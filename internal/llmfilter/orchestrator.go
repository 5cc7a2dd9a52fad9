package llmfilter

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// DefaultBatchSize is the number of records sent per classifier call.
const DefaultBatchSize = 50

// Orchestrator drives the batch classification run. Batches are contiguous,
// order-preserving, and processed sequentially; the classifier service is the
// bottleneck, not this loop.
type Orchestrator struct {
	backend   Backend
	batchSize int
}

// NewOrchestrator creates an Orchestrator. A non-positive batchSize falls back
// to the default.
func NewOrchestrator(backend Backend, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Orchestrator{backend: backend, batchSize: batchSize}
}

// Run classifies candidates batch by batch and aggregates the survivors.
// Per-batch failures (timeout, connection error, malformed or structurally
// invalid reply, empty record list) degrade that batch to empty and count it
// failed; remaining batches proceed. Zero total survivors is a valid outcome,
// returned with the statistics rather than raised.
func (o *Orchestrator) Run(ctx context.Context, candidates []model.CandidateRecord) (*model.FilterResult, error) {
	records := make([]model.RawRecord, len(candidates))
	for i, c := range candidates {
		records[i] = c.RawRecord
	}

	totalBatches := (len(records) + o.batchSize - 1) / o.batchSize
	zap.L().Info("llmfilter: starting",
		zap.Int("input_rows", len(records)),
		zap.Int("batch_size", o.batchSize),
		zap.Int("batches", totalBatches),
		zap.String("backend", o.backend.Name()),
	)

	var kept []model.RawRecord
	successful := 0
	failed := 0

	for i := 0; i < len(records); i += o.batchSize {
		end := i + o.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]
		batchNum := i/o.batchSize + 1

		verdict := o.classifyBatch(ctx, batch)
		if !verdict.Valid {
			zap.L().Warn("llmfilter: batch failed",
				zap.Int("batch", batchNum),
				zap.Int("batches", totalBatches),
				zap.String("reason", verdict.Reason),
			)
			failed++
			continue
		}

		zap.L().Info("llmfilter: batch processed",
			zap.Int("batch", batchNum),
			zap.Int("batches", totalBatches),
			zap.Int("kept", len(verdict.Records)),
			zap.Int("size", len(batch)),
		)
		kept = append(kept, verdict.Records...)
		successful++
	}

	result := aggregate(kept, len(records), successful, failed)
	result.FilterMethod = o.backend.Name()

	zap.L().Info("llmfilter: completed",
		zap.Int("input_records", result.Statistics.InputRecords),
		zap.Int("output_records", result.Statistics.OutputRecords),
		zap.Float64("kept_rate_pct", result.Statistics.KeptRatePct),
		zap.Int("successful_batches", successful),
		zap.Int("failed_batches", failed),
	)
	return result, nil
}

// classifyBatch performs one classifier call and validates the reply. Every
// failure mode collapses to an invalid verdict.
func (o *Orchestrator) classifyBatch(ctx context.Context, batch []model.RawRecord) BatchVerdict {
	user, err := buildUserPrompt(batch)
	if err != nil {
		return invalid("build prompt: " + err.Error())
	}

	reply, err := o.backend.Classify(ctx, systemPrompt, user)
	if err != nil {
		return invalid("classifier call: " + err.Error())
	}

	verdict := ValidateResponse(reply)
	if verdict.Valid && len(verdict.Records) == 0 {
		return invalid("empty json_output")
	}
	return verdict
}

// aggregate concatenates batch survivors in batch order and computes run
// statistics.
func aggregate(kept []model.RawRecord, totalInput, successful, failed int) *model.FilterResult {
	removed := totalInput - len(kept)
	filterRate := 0.0
	keptRate := 0.0
	if totalInput > 0 {
		filterRate = roundPct(float64(removed) / float64(totalInput) * 100)
		keptRate = roundPct(float64(len(kept)) / float64(totalInput) * 100)
	}

	result := &model.FilterResult{
		Records:      kept,
		TotalRecords: len(kept),
		Statistics: model.FilterStatistics{
			InputRecords:      totalInput,
			OutputRecords:     len(kept),
			RemovedRecords:    removed,
			FilterRatePct:     filterRate,
			KeptRatePct:       keptRate,
			SuccessfulBatches: successful,
			FailedBatches:     failed,
		},
	}
	if len(kept) > 0 {
		result.CSV = SynthesizeCSV(kept)
	}
	return result
}

func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}
