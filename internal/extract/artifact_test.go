package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all_pageviews.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateOutput(t *testing.T) {
	path := writeArtifact(t, "domain,page_title,count_views\nen.wikipedia.org,iPhone,50000\n")
	assert.NoError(t, ValidateOutput(path))
}

func TestValidateOutputLegacyDomainColumn(t *testing.T) {
	path := writeArtifact(t, "domain_code,page_title,count_views\nen.wikipedia.org,iPhone,50000\n")
	assert.NoError(t, ValidateOutput(path))
}

func TestValidateOutputFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing columns", "domain,views\nen.wikipedia.org,50000\n"},
		{"empty artifact", "domain,page_title,count_views\n"},
		{"non-numeric count", "domain,page_title,count_views\nen.wikipedia.org,iPhone,lots\n"},
		{"negative count", "domain,page_title,count_views\nen.wikipedia.org,iPhone,-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutput(writeArtifact(t, tt.content))
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrExtraction))
		})
	}
}

func TestReadArtifact(t *testing.T) {
	path := writeArtifact(t, "domain,page_title,count_views\nen.wikipedia.org,iPhone,50000\nen.wikipedia.org,Android,900\n")

	records, err := ReadArtifact(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.RawRecord{Domain: "en.wikipedia.org", PageTitle: "iPhone", Views: 50000}, records[0])
	assert.Equal(t, 900, records[1].Views)
}

func TestReadChunks(t *testing.T) {
	path := writeArtifact(t, "domain,page_title,count_views\n"+
		"a,p1,1\nb,p2,2\nc,p3,3\nd,p4,4\ne,p5,5\n")

	var sizes []int
	err := ReadChunks(path, 2, func(chunk []model.RawRecord) error {
		sizes = append(sizes, len(chunk))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestReadChunksPropagatesCallbackError(t *testing.T) {
	path := writeArtifact(t, "domain,page_title,count_views\na,p1,1\n")

	wantErr := eris.New("stop")
	err := ReadChunks(path, 1, func([]model.RawRecord) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}
