package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/core-sentiment/pageviews-cli/internal/extract"
	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local and dev
// runs without a warehouse.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS raw_pageviews (
	domain          TEXT NOT NULL,
	page_title      TEXT NOT NULL,
	count_views     INTEGER NOT NULL DEFAULT 0,
	source_file     TEXT NOT NULL,
	loaded_at       DATETIME NOT NULL,
	processing_date DATE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_raw_pageviews_source_file ON raw_pageviews(source_file);
CREATE INDEX IF NOT EXISTS idx_raw_pageviews_processing_date ON raw_pageviews(processing_date);

CREATE TABLE IF NOT EXISTS filtered_pageviews (
	domain          TEXT NOT NULL,
	page_title      TEXT NOT NULL,
	count_views     INTEGER NOT NULL DEFAULT 0,
	company         TEXT NOT NULL,
	filtered_at     DATETIME NOT NULL,
	processing_date DATE NOT NULL,
	filter_method   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_filtered_pageviews_company ON filtered_pageviews(company);
CREATE INDEX IF NOT EXISTS idx_filtered_pageviews_processing_date ON filtered_pageviews(processing_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadRaw(ctx context.Context, csvPath, sourceFile string, processingDate time.Time, chunkSize int) (*model.LoadResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin raw load")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO raw_pageviews (domain, page_title, count_views, source_file, loaded_at, processing_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare raw insert")
	}
	defer stmt.Close() //nolint:errcheck

	loadedAt := time.Now().UTC()
	date := processingDate.Format("2006-01-02")
	total := 0

	err = extract.ReadChunks(csvPath, chunkSize, func(chunk []model.RawRecord) error {
		for _, r := range chunk {
			domain := r.Domain
			if domain == "" {
				domain = unknownValue
			}
			title := r.PageTitle
			if title == "" {
				title = unknownValue
			}
			if _, execErr := stmt.ExecContext(ctx, domain, title, r.Views, sourceFile, loadedAt, date); execErr != nil {
				return eris.Wrap(execErr, "sqlite: insert raw row")
			}
			total++
		}
		zap.L().Info("sqlite: raw chunk loaded", zap.Int("rows_total", total))
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: raw load %s", sourceFile)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit raw load")
	}
	return &model.LoadResult{RowsLoaded: total, SourceFile: sourceFile, Status: "loaded"}, nil
}

func (s *SQLiteStore) Verify(ctx context.Context, sourceFile string) *model.Verification {
	v := &model.Verification{SourceFile: sourceFile}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT domain), COALESCE(SUM(count_views), 0), COALESCE(MAX(loaded_at), '')
		 FROM raw_pageviews WHERE source_file = ?`,
		sourceFile,
	).Scan(&v.RecordCount, &v.DomainCount, &v.TotalViews, &v.LoadTime)
	if err != nil {
		v.Error = err.Error()
		return v
	}

	if v.RecordCount == 0 {
		v.Error = "no rows found for source file"
		return v
	}
	v.Verified = true
	return v
}

func (s *SQLiteStore) QueryRaw(ctx context.Context, processingDate time.Time, minViews int) ([]model.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, page_title, count_views FROM raw_pageviews
		 WHERE processing_date = ? AND count_views >= ?`,
		processingDate.Format("2006-01-02"), minViews,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query raw layer")
	}
	defer rows.Close() //nolint:errcheck

	var records []model.RawRecord
	for rows.Next() {
		var r model.RawRecord
		if err := rows.Scan(&r.Domain, &r.PageTitle, &r.Views); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan raw row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate raw rows")
	}
	return records, nil
}

func (s *SQLiteStore) LoadFiltered(ctx context.Context, records []model.ClassifiedRecord) (*model.LoadResult, error) {
	if len(records) == 0 {
		zap.L().Warn("sqlite: no filtered records to load")
		return &model.LoadResult{RowsLoaded: 0, Status: "empty"}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin filtered load")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO filtered_pageviews (domain, page_title, count_views, company, filtered_at, processing_date, filter_method)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare filtered insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Domain, r.PageTitle, r.Views, r.Company,
			r.FilteredAt, r.ProcessingDate.Format("2006-01-02"), r.FilterMethod,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert filtered row")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit filtered load")
	}
	return &model.LoadResult{RowsLoaded: len(records), Status: "loaded"}, nil
}
