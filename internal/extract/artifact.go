package extract

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// ValidateOutput re-opens a raw artifact and checks the contract: required
// columns present, at least one data row, and a count column holding only
// non-negative integers.
func ValidateOutput(csvPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return eris.Wrapf(ErrExtraction, "extract: open artifact: %v", err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return eris.Wrapf(ErrExtraction, "extract: read artifact header: %v", err)
	}
	cols, err := headerColumns(header)
	if err != nil {
		return err
	}

	rows := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrapf(ErrExtraction, "extract: read artifact row: %v", err)
		}
		views, convErr := strconv.Atoi(rec[cols.views])
		if convErr != nil || views < 0 {
			return eris.Wrapf(ErrExtraction, "extract: invalid count_views %q at row %d", rec[cols.views], rows+1)
		}
		rows++
	}

	if rows == 0 {
		return eris.Wrap(ErrExtraction, "extract: artifact is empty")
	}
	return nil
}

// ReadArtifact loads a full raw artifact into memory.
func ReadArtifact(csvPath string) ([]model.RawRecord, error) {
	var records []model.RawRecord
	err := ReadChunks(csvPath, 0, func(chunk []model.RawRecord) error {
		records = append(records, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadChunks streams a raw artifact through fn in chunks of chunkSize rows
// (0 means one chunk holding the whole file). Used by the loader to bound
// peak memory during bulk inserts.
func ReadChunks(csvPath string, chunkSize int, fn func([]model.RawRecord) error) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return eris.Wrapf(ErrExtraction, "extract: open artifact: %v", err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return eris.Wrapf(ErrExtraction, "extract: read artifact header: %v", err)
	}
	cols, err := headerColumns(header)
	if err != nil {
		return err
	}

	var chunk []model.RawRecord
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := fn(chunk); err != nil {
			return err
		}
		chunk = nil
		return nil
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return eris.Wrapf(ErrExtraction, "extract: read artifact row: %v", err)
		}

		views, convErr := strconv.Atoi(rec[cols.views])
		if convErr != nil || views < 0 {
			views = 0
		}
		chunk = append(chunk, model.RawRecord{
			Domain:    rec[cols.domain],
			PageTitle: rec[cols.title],
			Views:     views,
		})

		if chunkSize > 0 && len(chunk) == chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// columnIndexes locates the contract columns within an artifact header.
type columnIndexes struct {
	domain, title, views int
}

// headerColumns validates the artifact header. The domain column accepts the
// pre-rename "domain_code" spelling for artifacts written by older runs.
func headerColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{domain: -1, title: -1, views: -1}
	for i, name := range header {
		switch name {
		case "domain", "domain_code":
			cols.domain = i
		case "page_title":
			cols.title = i
		case "count_views":
			cols.views = i
		}
	}
	if cols.domain < 0 || cols.title < 0 || cols.views < 0 {
		return cols, eris.Wrapf(ErrExtraction, "extract: artifact missing required columns, found %v", header)
	}
	return cols, nil
}
