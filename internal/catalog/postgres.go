package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veridata/parqgen/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// PostgresWriter persists run records to a PostgreSQL catalog.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

// NewPostgresWriter connects to the catalog database and ensures the
// parqgen_* tables exist.
func NewPostgresWriter(ctx context.Context, cfg Config) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse catalog DSN: %w", err)
	}
	poolCfg.MaxConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create catalog pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping catalog database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}

	logging.Component("catalog").Info("connected to postgres catalog")
	return &PostgresWriter{pool: pool}, nil
}

// RecordRun inserts the run and its files in one transaction. Re-recording
// the same run id updates the run row and replaces its file rows.
func (w *PostgresWriter) RecordRun(ctx context.Context, rec RunRecord) error {
	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO parqgen_runs
				(run_id, created_at, total_rows, format, compression, schema_version, producer_version)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (run_id) DO UPDATE SET
				total_rows = EXCLUDED.total_rows,
				recorded_at = NOW()
		`, rec.RunID, rec.CreatedAt, rec.TotalRows, rec.Format, rec.Compression, rec.SchemaVersion, rec.ProducerVersion)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM parqgen_files WHERE run_id = $1`, rec.RunID); err != nil {
			return fmt.Errorf("clear run files: %w", err)
		}
		for _, f := range rec.Files {
			_, err := tx.Exec(ctx, `
				INSERT INTO parqgen_files (run_id, uri, rows, bytes, checksum)
				VALUES ($1, $2, $3, $4, $5)
			`, rec.RunID, f.URI, f.Rows, f.Bytes, f.Checksum)
			if err != nil {
				return fmt.Errorf("insert file %s: %w", f.URI, err)
			}
		}
		return nil
	})
}

// Close releases the connection pool.
func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}
