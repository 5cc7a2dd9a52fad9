package prefilter

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// candidateHeader is the column contract of the candidate export artifact,
// written between the prefilter and classification stages for
// process-boundary handoff.
var candidateHeader = []string{"domain", "page_title", "count_views", "company"}

// WriteCandidates writes the candidate set to a CSV artifact.
func WriteCandidates(path string, candidates []model.CandidateRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "prefilter: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "prefilter: create candidate artifact")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(candidateHeader); err != nil {
		return eris.Wrap(err, "prefilter: write header")
	}
	for _, c := range candidates {
		row := []string{c.Domain, c.PageTitle, strconv.Itoa(c.Views), c.Company}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "prefilter: write row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "prefilter: flush candidate artifact")
}

// ReadCandidates loads a candidate artifact. The company column is optional
// so artifacts written before classification labels existed still parse.
func ReadCandidates(path string) ([]model.CandidateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "prefilter: open candidate artifact")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "prefilter: read header")
	}
	idx := map[string]int{}
	for i, name := range header {
		idx[name] = i
	}
	for _, required := range []string{"domain", "page_title", "count_views"} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("prefilter: candidate artifact missing column %q", required)
		}
	}
	companyIdx, hasCompany := idx["company"]
	lastRequired := idx["domain"]
	for _, name := range []string{"page_title", "count_views"} {
		if idx[name] > lastRequired {
			lastRequired = idx[name]
		}
	}

	var candidates []model.CandidateRecord
	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "prefilter: read row")
		}
		// Rows too short to carry the required columns are skipped, like
		// malformed dump lines during extraction.
		if len(rec) <= lastRequired {
			skipped++
			continue
		}
		views, convErr := strconv.Atoi(rec[idx["count_views"]])
		if convErr != nil || views < 0 {
			views = 0
		}
		c := model.CandidateRecord{
			RawRecord: model.RawRecord{
				Domain:    rec[idx["domain"]],
				PageTitle: rec[idx["page_title"]],
				Views:     views,
			},
		}
		if hasCompany && companyIdx < len(rec) {
			c.Company = rec[companyIdx]
		}
		candidates = append(candidates, c)
	}
	if skipped > 0 {
		zap.L().Warn("prefilter: short rows skipped in candidate artifact",
			zap.Int("skipped", skipped),
		)
	}
	return candidates, nil
}
