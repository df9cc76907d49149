// Package catalog records completed runs in an external catalog so that
// downstream test harnesses can discover generated datasets.
package catalog

import (
	"context"
	"time"
)

// Config selects the catalog backend. An empty DSN disables cataloging.
type Config struct {
	PostgresDSN string
}

// RunRecord describes one completed generation run.
type RunRecord struct {
	RunID           string
	CreatedAt       time.Time
	TotalRows       int64
	Format          string
	Compression     string
	SchemaVersion   string
	ProducerVersion string
	Files           []FileRecord
}

// FileRecord describes one output file of a run.
type FileRecord struct {
	URI      string
	Rows     int64
	Bytes    int64
	Checksum string
}

// Writer persists run records.
type Writer interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	Close()
}

// NewWriter returns a writer for the configured backend, or a no-op writer
// when cataloging is disabled.
func NewWriter(ctx context.Context, cfg Config) (Writer, error) {
	if cfg.PostgresDSN == "" {
		return nopWriter{}, nil
	}
	return NewPostgresWriter(ctx, cfg)
}

type nopWriter struct{}

func (nopWriter) RecordRun(context.Context, RunRecord) error { return nil }
func (nopWriter) Close()                                     {}
