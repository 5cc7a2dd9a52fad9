// Package extract parses compressed pageview dumps into the raw CSV artifact
// consumed by the loader and the prefilter.
package extract

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// ErrExtraction marks malformed or unreadable input, or a validation failure
// of the produced artifact. Fatal to the run.
var ErrExtraction = errors.New("extraction error")

// DefaultChunkSize is the number of dump rows processed per chunk.
const DefaultChunkSize = 500_000

// artifactHeader is the column contract of the raw CSV artifact.
var artifactHeader = []string{"domain", "page_title", "count_views"}

// Extractor converts a gzip pageview dump into the raw CSV artifact.
type Extractor struct {
	chunkSize int
	outputDir string
}

// New creates an Extractor. A non-positive chunkSize falls back to the default.
func New(chunkSize int, outputDir string) *Extractor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Extractor{chunkSize: chunkSize, outputDir: outputDir}
}

// Extract converts the dump at gzPath into a validated CSV artifact and
// returns its path, source filename, and record count.
func (e *Extractor) Extract(gzPath string) (*model.ExtractResult, error) {
	outPath := filepath.Join(e.outputDir, "all_pageviews.csv")

	count, err := e.extractFile(gzPath, outPath)
	if err != nil {
		return nil, err
	}

	if err := ValidateOutput(outPath); err != nil {
		return nil, err
	}

	zap.L().Info("extract: completed and validated",
		zap.String("csv_path", outPath),
		zap.Int("record_count", count),
	)

	return &model.ExtractResult{
		CSVPath:     outPath,
		SourceFile:  filepath.Base(gzPath),
		RecordCount: count,
	}, nil
}

// extractFile streams the dump through fixed-size row chunks into outPath.
// Returns the number of rows written.
func (e *Extractor) extractFile(gzPath, outPath string) (int, error) {
	// Pre-check: the file must be a readable gzip stream before we commit to
	// a full pass.
	if err := checkGzip(gzPath); err != nil {
		return 0, err
	}

	f, err := os.Open(gzPath)
	if err != nil {
		return 0, eris.Wrapf(ErrExtraction, "extract: open dump: %v", err)
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, eris.Wrapf(ErrExtraction, "extract: gzip reader: %v", err)
	}
	defer gz.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, eris.Wrapf(ErrExtraction, "extract: create output dir: %v", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return 0, eris.Wrapf(ErrExtraction, "extract: create artifact: %v", err)
	}
	defer out.Close() //nolint:errcheck

	w := csv.NewWriter(out)
	if err := w.Write(artifactHeader); err != nil {
		return 0, eris.Wrapf(ErrExtraction, "extract: write header: %v", err)
	}

	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	total := 0
	skipped := 0
	inChunk := 0
	chunkNum := 1

	for sc.Scan() {
		rec, ok := parseLine(sc.Text())
		if !ok {
			skipped++
			continue
		}

		if err := w.Write([]string{rec.Domain, rec.PageTitle, strconv.Itoa(rec.Views)}); err != nil {
			return 0, eris.Wrapf(ErrExtraction, "extract: write row: %v", err)
		}
		total++
		inChunk++

		if inChunk == e.chunkSize {
			w.Flush()
			if err := w.Error(); err != nil {
				return 0, eris.Wrapf(ErrExtraction, "extract: flush chunk: %v", err)
			}
			zap.L().Info("extract: chunk written",
				zap.Int("chunk", chunkNum),
				zap.Int("rows_total", total),
			)
			chunkNum++
			inChunk = 0
		}
	}
	if err := sc.Err(); err != nil {
		return 0, eris.Wrapf(ErrExtraction, "extract: read dump: %v", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, eris.Wrapf(ErrExtraction, "extract: flush artifact: %v", err)
	}

	if total == 0 {
		return 0, eris.Wrap(ErrExtraction, "extract: no rows found in dump")
	}

	zap.L().Info("extract: dump processed",
		zap.Int("rows", total),
		zap.Int("skipped_lines", skipped),
	)
	return total, nil
}

// checkGzip opens the file and reads a single line to confirm it is a
// well-formed gzip stream.
func checkGzip(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(ErrExtraction, "extract: open dump: %v", err)
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		return eris.Wrapf(ErrExtraction, "extract: invalid gzip file: %v", err)
	}
	defer gz.Close() //nolint:errcheck

	r := bufio.NewReader(gz)
	if _, err := r.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return eris.Wrapf(ErrExtraction, "extract: invalid gzip file: %v", err)
	}
	return nil
}

// parseLine splits one space-delimited dump line into a RawRecord. The line
// format is "domain_code page_title count_views total_response_size"; the
// fourth column is discarded. Lines with the wrong column count are skipped.
// Unparsable or negative counts are coerced to 0, not dropped.
func parseLine(line string) (model.RawRecord, bool) {
	fields := strings.Split(line, " ")
	if len(fields) != 4 {
		return model.RawRecord{}, false
	}

	views, err := strconv.Atoi(fields[2])
	if err != nil || views < 0 {
		views = 0
	}

	return model.RawRecord{
		Domain:    fields[0],
		PageTitle: fields[1],
		Views:     views,
	}, true
}
