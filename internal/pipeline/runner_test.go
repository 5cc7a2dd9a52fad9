package pipeline

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-sentiment/pageviews-cli/internal/config"
	"github.com/core-sentiment/pageviews-cli/internal/model"
	"github.com/core-sentiment/pageviews-cli/internal/monitoring"
	"github.com/core-sentiment/pageviews-cli/internal/rules"
)

type fakeStore struct {
	rawCalls      int
	rawSourceFile string
	verified      bool
	filtered      []model.ClassifiedRecord
	filteredCalls int
}

func (s *fakeStore) LoadRaw(_ context.Context, _, sourceFile string, _ time.Time, _ int) (*model.LoadResult, error) {
	s.rawCalls++
	s.rawSourceFile = sourceFile
	return &model.LoadResult{RowsLoaded: 3, SourceFile: sourceFile, Status: "loaded"}, nil
}

func (s *fakeStore) Verify(_ context.Context, sourceFile string) *model.Verification {
	if !s.verified {
		return &model.Verification{SourceFile: sourceFile, Error: "no rows found for source file"}
	}
	return &model.Verification{SourceFile: sourceFile, RecordCount: 3, DomainCount: 1, TotalViews: 51200, Verified: true}
}

func (s *fakeStore) QueryRaw(context.Context, time.Time, int) ([]model.RawRecord, error) {
	return nil, nil
}

func (s *fakeStore) LoadFiltered(_ context.Context, records []model.ClassifiedRecord) (*model.LoadResult, error) {
	s.filteredCalls++
	s.filtered = records
	if len(records) == 0 {
		return &model.LoadResult{Status: "empty"}, nil
	}
	return &model.LoadResult{RowsLoaded: len(records), Status: "loaded"}, nil
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

type staticBackend struct {
	reply string
}

func (b *staticBackend) Name() string { return "llm_test" }
func (b *staticBackend) Classify(context.Context, string, string) (string, error) {
	return b.reply, nil
}

type recordingNotifier struct {
	events []monitoring.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event monitoring.Event) error {
	n.events = append(n.events, event)
	return nil
}

func writeDump(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pageviews-20251001-000000.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	for _, line := range lines {
		_, err := gz.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Extract:   config.ExtractConfig{ChunkSize: 0, OutputDir: t.TempDir()},
		Prefilter: config.PrefilterConfig{RuleSet: "standard"},
		Filter:    config.FilterConfig{BatchSize: 50},
		Load:      config.LoadConfig{ChunkSize: 1000},
	}
}

func TestRunEndToEnd(t *testing.T) {
	dump := writeDump(t, []string{
		"en.wikipedia.org iPhone 50000 0",
		"en.wikipedia.org Quantum_computing 900 0",
		"en.wikipedia.org Kindle 300 0",
	})

	doc, err := rules.Load()
	require.NoError(t, err)

	st := &fakeStore{verified: true}
	backend := &staticBackend{
		reply: `{"json_output": [{"domain": "en.wikipedia.org", "page_title": "iPhone", "count_views": 50000}]}`,
	}
	notifier := &recordingNotifier{}

	runner := NewRunner(testConfig(t), st, doc, backend, notifier)
	date := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	result, err := runner.Run(context.Background(), dump, date)
	require.NoError(t, err)

	assert.Equal(t, 1, st.rawCalls)
	assert.Equal(t, filepath.Base(dump), st.rawSourceFile)

	// Rule stages keep iPhone and Kindle; the classifier keeps only iPhone.
	assert.Equal(t, 2, result.Statistics.InputRecords)
	assert.Equal(t, 1, result.TotalRecords)

	require.Len(t, st.filtered, 1)
	assert.Equal(t, "iPhone", st.filtered[0].PageTitle)
	assert.Equal(t, "Apple", st.filtered[0].Company)
	assert.Equal(t, "llm_test", st.filtered[0].FilterMethod)
	assert.Equal(t, date, st.filtered[0].ProcessingDate)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, monitoring.EventRunComplete, notifier.events[0].Type)
	assert.NotEmpty(t, notifier.events[0].RunID)
	require.NotNil(t, notifier.events[0].Statistics)
	assert.Equal(t, 1, notifier.events[0].Statistics.OutputRecords)
}

func TestRunVerificationFailureAborts(t *testing.T) {
	dump := writeDump(t, []string{"en.wikipedia.org iPhone 50000 0"})

	doc, err := rules.Load()
	require.NoError(t, err)

	st := &fakeStore{verified: false}
	notifier := &recordingNotifier{}
	runner := NewRunner(testConfig(t), st, doc, &staticBackend{}, notifier)

	_, err = runner.Run(context.Background(), dump, time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed")

	assert.Equal(t, 0, st.filteredCalls)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, monitoring.EventRunFailed, notifier.events[0].Type)
	assert.NotEmpty(t, notifier.events[0].Error)
}
