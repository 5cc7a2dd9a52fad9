package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/core-sentiment/pageviews-cli/internal/db"
	"github.com/core-sentiment/pageviews-cli/internal/extract"
	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS raw_pageviews (
	domain          TEXT NOT NULL,
	page_title      TEXT NOT NULL,
	count_views     BIGINT NOT NULL DEFAULT 0,
	source_file     TEXT NOT NULL,
	loaded_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	processing_date DATE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_raw_pageviews_source_file ON raw_pageviews(source_file);
CREATE INDEX IF NOT EXISTS idx_raw_pageviews_processing_date ON raw_pageviews(processing_date);
CREATE INDEX IF NOT EXISTS idx_raw_pageviews_date_views ON raw_pageviews(processing_date, count_views DESC);

CREATE TABLE IF NOT EXISTS filtered_pageviews (
	domain          TEXT NOT NULL,
	page_title      TEXT NOT NULL,
	count_views     BIGINT NOT NULL DEFAULT 0,
	company         TEXT NOT NULL,
	filtered_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	processing_date DATE NOT NULL,
	filter_method   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_filtered_pageviews_company ON filtered_pageviews(company);
CREATE INDEX IF NOT EXISTS idx_filtered_pageviews_processing_date ON filtered_pageviews(processing_date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var rawColumns = []string{"domain", "page_title", "count_views", "source_file", "loaded_at", "processing_date"}

func (s *PostgresStore) LoadRaw(ctx context.Context, csvPath, sourceFile string, processingDate time.Time, chunkSize int) (*model.LoadResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin raw load")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	loadedAt := time.Now().UTC()
	total := 0
	chunkNum := 0

	err = extract.ReadChunks(csvPath, chunkSize, func(chunk []model.RawRecord) error {
		rows := make([][]any, len(chunk))
		for i, r := range chunk {
			domain := r.Domain
			if domain == "" {
				domain = unknownValue
			}
			title := r.PageTitle
			if title == "" {
				title = unknownValue
			}
			rows[i] = []any{domain, title, r.Views, sourceFile, loadedAt, processingDate}
		}

		n, copyErr := db.CopyFromTx(ctx, tx, "raw_pageviews", rawColumns, rows)
		if copyErr != nil {
			return copyErr
		}
		total += int(n)
		chunkNum++
		zap.L().Info("postgres: raw chunk loaded",
			zap.Int("chunk", chunkNum),
			zap.Int("rows_total", total),
		)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: raw load %s", sourceFile)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit raw load")
	}

	zap.L().Info("postgres: raw load committed",
		zap.String("source_file", sourceFile),
		zap.Int("rows_loaded", total),
	)
	return &model.LoadResult{RowsLoaded: total, SourceFile: sourceFile, Status: "loaded"}, nil
}

func (s *PostgresStore) Verify(ctx context.Context, sourceFile string) *model.Verification {
	v := &model.Verification{SourceFile: sourceFile}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT domain), COALESCE(SUM(count_views), 0), COALESCE(MAX(loaded_at)::text, '')
		 FROM raw_pageviews WHERE source_file = $1`,
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

func (s *PostgresStore) QueryRaw(ctx context.Context, processingDate time.Time, minViews int) ([]model.RawRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT domain, page_title, count_views FROM raw_pageviews
		 WHERE processing_date = $1 AND count_views >= $2`,
		processingDate, minViews,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query raw layer")
	}
	defer rows.Close()

	var records []model.RawRecord
	for rows.Next() {
		var r model.RawRecord
		if err := rows.Scan(&r.Domain, &r.PageTitle, &r.Views); err != nil {
			return nil, eris.Wrap(err, "postgres: scan raw row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate raw rows")
	}
	return records, nil
}

var filteredColumns = []string{"domain", "page_title", "count_views", "company", "filtered_at", "processing_date", "filter_method"}

func (s *PostgresStore) LoadFiltered(ctx context.Context, records []model.ClassifiedRecord) (*model.LoadResult, error) {
	if len(records) == 0 {
		zap.L().Warn("postgres: no filtered records to load")
		return &model.LoadResult{RowsLoaded: 0, Status: "empty"}, nil
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Domain, r.PageTitle, r.Views, r.Company, r.FilteredAt, r.ProcessingDate, r.FilterMethod}
	}

	n, err := db.CopyFrom(ctx, s.pool, "filtered_pageviews", filteredColumns, rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: filtered load")
	}

	zap.L().Info("postgres: filtered load complete", zap.Int64("rows_loaded", n))
	return &model.LoadResult{RowsLoaded: int(n), Status: "loaded"}, nil
}
