package llmfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// scriptedBackend replays one reply (or error) per batch, in call order.
type scriptedBackend struct {
	replies []string
	errs    []error
	calls   int
	batches [][]model.RawRecord
}

func (b *scriptedBackend) Name() string { return "llm_test" }

func (b *scriptedBackend) Classify(_ context.Context, _, user string) (string, error) {
	i := b.calls
	b.calls++

	b.batches = append(b.batches, parseBatchPayload(user))

	if i < len(b.errs) && b.errs[i] != nil {
		return "", b.errs[i]
	}
	return b.replies[i], nil
}

// parseBatchPayload recovers the serialized records from the user prompt, so
// tests can assert what each batch contained.
func parseBatchPayload(user string) []model.RawRecord {
	start := strings.Index(user, "RECORDS TO FILTER:")
	end := strings.Index(user, "REQUIRED OUTPUT FORMAT:")
	if start < 0 || end < 0 || end <= start {
		return nil
	}
	section := user[start+len("RECORDS TO FILTER:") : end]

	var batch []model.RawRecord
	_ = json.Unmarshal([]byte(strings.TrimSpace(section)), &batch)
	return batch
}

func keepAll(records ...model.RawRecord) string {
	payload, _ := json.Marshal(map[string]any{"json_output": records})
	return string(payload)
}

func candidates(n int) []model.CandidateRecord {
	out := make([]model.CandidateRecord, n)
	for i := range out {
		out[i] = model.CandidateRecord{
			RawRecord: model.RawRecord{
				Domain:    "en.wikipedia.org",
				PageTitle: fmt.Sprintf("Page_%d", i),
				Views:     100 + i,
			},
			Company: "Apple",
		}
	}
	return out
}

func TestRunBatchesContiguously(t *testing.T) {
	cands := candidates(5)
	backend := &scriptedBackend{replies: []string{
		keepAll(cands[0].RawRecord, cands[1].RawRecord),
		keepAll(cands[2].RawRecord),
		keepAll(cands[4].RawRecord),
	}}

	result, err := NewOrchestrator(backend, 2).Run(context.Background(), cands)
	require.NoError(t, err)

	// Three contiguous batches of 2/2/1, in input order.
	require.Len(t, backend.batches, 3)
	assert.Equal(t, "Page_0", backend.batches[0][0].PageTitle)
	assert.Equal(t, "Page_2", backend.batches[1][0].PageTitle)
	assert.Len(t, backend.batches[2], 1)

	assert.Equal(t, 4, result.TotalRecords)
	assert.Equal(t, []string{"Page_0", "Page_1", "Page_2", "Page_4"}, titles(result.Records))
	assert.Equal(t, 5, result.Statistics.InputRecords)
	assert.Equal(t, 4, result.Statistics.OutputRecords)
	assert.Equal(t, 1, result.Statistics.RemovedRecords)
	assert.Equal(t, 3, result.Statistics.SuccessfulBatches)
	assert.Equal(t, 0, result.Statistics.FailedBatches)
	assert.InDelta(t, 80.0, result.Statistics.KeptRatePct, 0.01)
	assert.InDelta(t, 20.0, result.Statistics.FilterRatePct, 0.01)
	assert.Equal(t, "llm_test", result.FilterMethod)
	assert.Contains(t, result.CSV, "domain,page_title,count_views\n")
}

func TestRunFailedBatchDegrades(t *testing.T) {
	cands := candidates(5)
	backend := &scriptedBackend{
		replies: []string{
			keepAll(cands[0].RawRecord, cands[1].RawRecord),
			"",
			keepAll(cands[4].RawRecord),
		},
		errs: []error{nil, eris.New("request timed out"), nil},
	}

	result, err := NewOrchestrator(backend, 2).Run(context.Background(), cands)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Statistics.SuccessfulBatches)
	assert.Equal(t, 1, result.Statistics.FailedBatches)
	assert.Equal(t, []string{"Page_0", "Page_1", "Page_4"}, titles(result.Records))
}

func TestRunMalformedReplyDegrades(t *testing.T) {
	cands := candidates(2)
	backend := &scriptedBackend{replies: []string{"not json at all"}}

	result, err := NewOrchestrator(backend, 50).Run(context.Background(), cands)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalRecords)
	assert.Equal(t, 1, result.Statistics.FailedBatches)
	assert.Equal(t, 0, result.Statistics.SuccessfulBatches)
}

func TestRunZeroSurvivorsReturnsEmptyResult(t *testing.T) {
	cands := candidates(3)
	backend := &scriptedBackend{replies: []string{`{"json_output": [], "csv_output": ""}`}}

	result, err := NewOrchestrator(backend, 50).Run(context.Background(), cands)
	require.NoError(t, err)

	assert.Empty(t, result.Records)
	assert.Empty(t, result.CSV)
	assert.Equal(t, 0, result.TotalRecords)
	assert.Equal(t, 3, result.Statistics.InputRecords)
	assert.InDelta(t, 100.0, result.Statistics.FilterRatePct, 0.01)
	assert.Equal(t, 0, result.Statistics.SuccessfulBatches)
	assert.Equal(t, 1, result.Statistics.FailedBatches)
}

func TestRunEmptyRecordListCountsBatchFailed(t *testing.T) {
	cands := candidates(4)
	backend := &scriptedBackend{replies: []string{
		`{"json_output": [], "csv_output": ""}`,
		`{"json_output": [], "csv_output": ""}`,
	}}

	result, err := NewOrchestrator(backend, 2).Run(context.Background(), cands)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Statistics.SuccessfulBatches)
	assert.Equal(t, 2, result.Statistics.FailedBatches)
	assert.Empty(t, result.Records)
}

func TestRunEmptyInput(t *testing.T) {
	backend := &scriptedBackend{}

	result, err := NewOrchestrator(backend, 50).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, backend.calls)
	assert.Equal(t, 0, result.Statistics.InputRecords)
	assert.Zero(t, result.Statistics.FilterRatePct)
}

func titles(records []model.RawRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.PageTitle
	}
	return out
}
