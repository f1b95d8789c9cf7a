package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aluiziolira/go-scrape-products/models"
)

const createProductRecords = `CREATE TABLE IF NOT EXISTS product_records (
	id           BIGSERIAL PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	price        TEXT NOT NULL DEFAULT '',
	rating       TEXT NOT NULL DEFAULT '',
	image        TEXT NOT NULL DEFAULT '',
	product_link TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	search_query TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL,
	scraped_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createProductRecordsIndex = `CREATE INDEX IF NOT EXISTS product_records_key_idx
	ON product_records (website, product_link)`

const insertProductRecord = `INSERT INTO product_records
	(title, price, rating, image, product_link, description, search_query, website)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// insertMissingProductRecord skips rows whose (website, product_link) is
// already stored, including rows inserted earlier in the same transaction.
const insertMissingProductRecord = `INSERT INTO product_records
	(title, price, rating, image, product_link, description, search_query, website)
	SELECT $1::text, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::text
	WHERE NOT EXISTS (
		SELECT 1 FROM product_records WHERE website = $8::text AND product_link = $5::text
	)`

func insertStatement(dedupeExisting bool) string {
	if dedupeExisting {
		return insertMissingProductRecord
	}
	return insertProductRecord
}

// PostgresWriter buffers records and stores them in product_records in a
// single transaction on Close. Without Append the table is truncated first;
// with DedupeExisting, records already in the table are skipped.
type PostgresWriter struct {
	ctx       context.Context
	pool      *pgxpool.Pool
	opts      WriterOptions
	batchSize int

	mu      sync.Mutex
	pending []models.ProductRecord
	done    bool
	stored  int
}

// NewPostgresWriter connects to dsn and ensures the table exists.
func NewPostgresWriter(ctx context.Context, dsn string, opts WriterOptions) (*PostgresWriter, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &SinkWriteError{Path: "postgres", Err: fmt.Errorf("parse dsn: %w", err)}
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &SinkWriteError{Path: "postgres", Err: fmt.Errorf("connect: %w", err)}
	}
	for _, ddl := range []string{createProductRecords, createProductRecordsIndex} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			return nil, &SinkWriteError{Path: "postgres", Err: fmt.Errorf("create table: %w", err)}
		}
	}

	return &PostgresWriter{
		ctx:       ctx,
		pool:      pool,
		opts:      opts,
		batchSize: 200,
	}, nil
}

// Write buffers records until Close.
func (pw *PostgresWriter) Write(records []models.ProductRecord) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.done {
		return &SinkWriteError{Path: "postgres", Err: ErrWriterClosed}
	}
	pw.pending = append(pw.pending, records...)
	return nil
}

// Close stores the buffered records and releases the pool.
func (pw *PostgresWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.done {
		return nil
	}
	pw.done = true
	defer pw.pool.Close()

	stored, err := storeRecords(pw.ctx, pw.pool, pw.pending, pw.opts, pw.batchSize)
	if err != nil {
		return &SinkWriteError{Path: "postgres", Err: err}
	}
	pw.stored = stored
	return nil
}

// Abort drops buffered records without touching the table.
func (pw *PostgresWriter) Abort() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.done {
		return
	}
	pw.done = true
	pw.pending = nil
	pw.pool.Close()
}

// Validate is a no-op; the transaction either committed or Close failed.
func (pw *PostgresWriter) Validate() error {
	return nil
}

// Stored reports how many rows the last Close inserted.
func (pw *PostgresWriter) Stored() int {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.stored
}

func storeRecords(ctx context.Context, pool *pgxpool.Pool, records []models.ProductRecord, opts WriterOptions, batch int) (int, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if !opts.Append {
		if _, err := tx.Exec(ctx, "TRUNCATE product_records"); err != nil {
			return 0, fmt.Errorf("truncate: %w", err)
		}
	}

	insert := insertStatement(opts.Append && opts.DedupeExisting)
	total := 0
	for i := 0; i < len(records); i += batch {
		j := min(i+batch, len(records))
		b := &pgx.Batch{}
		for _, rec := range records[i:j] {
			b.Queue(insert, recordArgs(rec)...)
		}
		br := tx.SendBatch(ctx, b)
		for k := i; k < j; k++ {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return total, fmt.Errorf("insert: %w", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func recordArgs(r models.ProductRecord) []any {
	row := r.Row()
	args := make([]any, len(row))
	for i, v := range row {
		args[i] = v
	}
	return args
}
