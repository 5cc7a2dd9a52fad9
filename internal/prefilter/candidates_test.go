package prefilter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

func TestWriteReadCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefiltered.csv")

	in := []model.CandidateRecord{
		{RawRecord: model.RawRecord{Domain: "en.wikipedia.org", PageTitle: "iPhone", Views: 50000}, Company: "Apple"},
		{RawRecord: model.RawRecord{Domain: "en.wikipedia.org", PageTitle: "Kindle", Views: 300}, Company: "Amazon"},
	}
	require.NoError(t, WriteCandidates(path, in))

	out, err := ReadCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadCandidatesWithoutCompanyColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.csv")
	content := "domain,page_title,count_views\nen.wikipedia.org,iPhone,50000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := ReadCandidates(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "iPhone", out[0].PageTitle)
	assert.Empty(t, out[0].Company)
}

func TestReadCandidatesSkipsShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.csv")
	content := "domain,page_title,count_views,company\n" +
		"en.wikipedia.org,iPhone\n" +
		"en.wikipedia.org,Kindle,300,Amazon\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	out, err := ReadCandidates(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Kindle", out[0].PageTitle)
}

func TestReadCandidatesMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("domain,views\nen.wikipedia.org,1\n"), 0o644))

	_, err := ReadCandidates(path)
	assert.Error(t, err)
}
