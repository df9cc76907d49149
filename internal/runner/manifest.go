package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/veridata/parqgen/internal/catalog"
	"github.com/veridata/parqgen/internal/plan"
	"github.com/veridata/parqgen/internal/tables"
)

// Manifest describes the outputs of one generation run.
type Manifest struct {
	RunID       string       `json:"run_id"`
	CreatedAt   time.Time    `json:"created_at"`
	TotalRows   int64        `json:"total_rows"`
	Table       string       `json:"table"`
	Format      string       `json:"format"`
	Compression string       `json:"compression"`
	Schema      string       `json:"schema_version"`
	Files       []FileInfo   `json:"files"`
	Producer    ProducerInfo `json:"producer"`
}

// FileInfo describes a single output file.
type FileInfo struct {
	Name     string `json:"name"`
	Rows     int64  `json:"rows"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum"`
}

// ProducerInfo describes the software that produced the run.
type ProducerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha,omitempty"`
}

// writeManifest writes the run manifest next to the output files.
func (r *Runner) writeManifest(ctx context.Context, runID string, p plan.Plan, files []FileInfo) error {
	m := Manifest{
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
		TotalRows:   p.TotalRows(),
		Table:       tables.EventRow{}.TableName(),
		Format:      string(r.cfg.Format),
		Compression: r.cfg.Compression,
		Schema:      tables.SchemaVersion,
		Files:       files,
		Producer: ProducerInfo{
			Name:    "parqgen",
			Version: Version,
			GitSHA:  GitSHA,
		},
	}

	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	stem := strings.TrimSuffix(r.base, filepath.Ext(r.base))
	name := stem + ".manifest.json"

	if _, err := r.sink.WriteFile(ctx, name, func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	}); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	r.log.Info("manifest written", "file", r.sink.URI(name))
	return nil
}

// recordRun registers the completed run in the external catalog.
func (r *Runner) recordRun(ctx context.Context, runID string, p plan.Plan, files []FileInfo) error {
	rec := catalog.RunRecord{
		RunID:           runID,
		CreatedAt:       time.Now().UTC(),
		TotalRows:       p.TotalRows(),
		Format:          string(r.cfg.Format),
		Compression:     r.cfg.Compression,
		SchemaVersion:   tables.SchemaVersion,
		ProducerVersion: Version,
	}
	for _, f := range files {
		rec.Files = append(rec.Files, catalog.FileRecord{
			URI:      r.sink.URI(f.Name),
			Rows:     f.Rows,
			Bytes:    f.Bytes,
			Checksum: f.Checksum,
		})
	}

	if err := r.catalog.RecordRun(ctx, rec); err != nil {
		return fmt.Errorf("record run in catalog: %w", err)
	}
	r.log.Info("run recorded in catalog", "run_id", runID, "files", len(files))
	return nil
}
