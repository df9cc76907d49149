package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/veridata/parqgen/internal/config"
	"github.com/veridata/parqgen/internal/plan"
	"github.com/veridata/parqgen/internal/storage"
	"github.com/veridata/parqgen/internal/synth"
	"github.com/veridata/parqgen/internal/tables"
)

func testConfig() config.Config {
	return config.Config{
		Rows:        100,
		Files:       2,
		Processes:   3,
		Format:      config.FormatNative,
		Compression: "snappy",
		NullRate:    0.05,
	}
}

func newTestRunner(t *testing.T, cfg config.Config, sources SourceFactory) (*Runner, string) {
	t.Helper()

	dir := t.TempDir()
	sink, base, err := storage.NewLocalSink(filepath.Join(dir, "out.parquet"))
	if err != nil {
		t.Fatalf("NewLocalSink failed: %v", err)
	}
	t.Cleanup(func() { sink.Close() })

	writer, err := tables.NewWriter(cfg.Format, cfg.Compression)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	return New(cfg, writer, sink, base, sources), dir
}

func synthSources(nullRate float64) SourceFactory {
	return func(seed int64) RowSource {
		return synth.New(seed, nullRate)
	}
}

func readRows(t *testing.T, path string) []tables.EventRow {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, []byte("PAR1")) || !bytes.HasSuffix(data, []byte("PAR1")) {
		t.Fatalf("%s is missing the parquet magic markers", path)
	}

	rows, err := parquet.Read[tables.EventRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return rows
}

func TestRunWritesAllFiles(t *testing.T) {
	cfg := testConfig()
	r, dir := newTestRunner(t, cfg, synthSources(cfg.NullRate))

	p := plan.Build(100, 2, 3)
	if err := r.Run(context.Background(), p); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var total int64
	for i, alloc := range p.Files {
		name := config.OutputName("out.parquet", i+1, len(p.Files))
		rows := readRows(t, filepath.Join(dir, name))
		if int64(len(rows)) != alloc.Rows {
			t.Errorf("%s holds %d rows, want %d", name, len(rows), alloc.Rows)
		}
		total += int64(len(rows))
	}
	if total != 100 {
		t.Errorf("files hold %d rows in total, want 100", total)
	}

	// No leftover temp files from the atomic writes.
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestRunSingleFileKeepsBaseName(t *testing.T) {
	cfg := testConfig()
	cfg.Files = 1
	cfg.Processes = 2
	r, dir := newTestRunner(t, cfg, synthSources(cfg.NullRate))

	if err := r.Run(context.Background(), plan.Build(40, 1, 2)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rows := readRows(t, filepath.Join(dir, "out.parquet"))
	if len(rows) != 40 {
		t.Errorf("out.parquet holds %d rows, want 40", len(rows))
	}
	if _, err := os.Stat(filepath.Join(dir, "out_part_001.parquet")); !os.IsNotExist(err) {
		t.Error("single-file run must not use part numbering")
	}
}

func TestRunDeterministic(t *testing.T) {
	// Seeds derive from (file, worker slot), not from which goroutine runs a
	// task, so reruns produce byte-identical row sets.
	run := func() []tables.EventRow {
		cfg := testConfig()
		cfg.Files = 1
		cfg.Processes = 4
		r, dir := newTestRunner(t, cfg, synthSources(cfg.NullRate))
		if err := r.Run(context.Background(), plan.Build(50, 1, 4)); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return readRows(t, filepath.Join(dir, "out.parquet"))
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].UserID != second[i].UserID || first[i].ChannelCode != second[i].ChannelCode {
			t.Fatalf("row %d differs between identical runs", i)
		}
	}
}

// failingSource errors after a fixed number of rows.
type failingSource struct {
	src       RowSource
	remaining int
	err       error
}

func (f *failingSource) Row() (tables.EventRow, error) {
	if f.remaining <= 0 {
		return tables.EventRow{}, f.err
	}
	f.remaining--
	return f.src.Row()
}

func TestWorkerFailureAbortsRun(t *testing.T) {
	injected := errors.New("simulated generation failure")
	cfg := testConfig()
	cfg.Processes = 4

	// The worker-2 slot of file 0 fails mid-shard; all other tasks are fine.
	sources := func(seed int64) RowSource {
		src := synth.New(seed, cfg.NullRate)
		if seed == (plan.Task{File: 0, Worker: 2}).Seed() {
			return &failingSource{src: src, remaining: 3, err: injected}
		}
		return src
	}
	r, dir := newTestRunner(t, cfg, sources)

	err := r.Run(context.Background(), plan.Build(200, 2, 4))
	if !errors.Is(err, injected) {
		t.Fatalf("Run = %v, want the injected worker error", err)
	}

	// A failed run leaves no output behind.
	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(files) != 0 {
		t.Errorf("failed run left output files: %v", files)
	}
}

// recordingSink tracks which files were written through it.
type recordingSink struct {
	storage.Sink
	mu     sync.Mutex
	writes []string
}

func (s *recordingSink) WriteFile(ctx context.Context, name string, write func(io.Writer) error) (int64, error) {
	n, err := s.Sink.WriteFile(ctx, name, write)
	if err == nil {
		s.mu.Lock()
		s.writes = append(s.writes, name)
		s.mu.Unlock()
	}
	return n, err
}

func TestFilesWrittenIncrementallyAndRemovedOnFailure(t *testing.T) {
	// Files are generated and written one at a time: when the second file's
	// generation fails, the first file has already been written and must be
	// removed again. Shards never accumulate across files.
	injected := errors.New("simulated generation failure")
	cfg := testConfig()
	cfg.Files = 3
	cfg.Processes = 2

	sources := func(seed int64) RowSource {
		src := synth.New(seed, cfg.NullRate)
		if seed == (plan.Task{File: 1, Worker: 0}).Seed() {
			return &failingSource{src: src, remaining: 2, err: injected}
		}
		return src
	}

	dir := t.TempDir()
	local, base, err := storage.NewLocalSink(filepath.Join(dir, "out.parquet"))
	if err != nil {
		t.Fatalf("NewLocalSink failed: %v", err)
	}
	sink := &recordingSink{Sink: local}
	t.Cleanup(func() { sink.Close() })

	writer, err := tables.NewWriter(cfg.Format, cfg.Compression)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	r := New(cfg, writer, sink, base, sources)

	if err := r.Run(context.Background(), plan.Build(120, 3, 2)); !errors.Is(err, injected) {
		t.Fatalf("Run = %v, want the injected worker error", err)
	}

	// The first file completed before the second file's generation started.
	sink.mu.Lock()
	writes := append([]string(nil), sink.writes...)
	sink.mu.Unlock()
	if len(writes) != 1 || writes[0] != "out_part_001.parquet" {
		t.Errorf("writes before failure = %v, want only out_part_001.parquet", writes)
	}

	// And was removed again by cleanup.
	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(files) != 0 {
		t.Errorf("failed run left output files: %v", files)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig()
	r, dir := newTestRunner(t, cfg, synthSources(cfg.NullRate))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx, plan.Build(100000, 2, 3)); err == nil {
		t.Fatal("Run succeeded with a cancelled context")
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(files) != 0 {
		t.Errorf("cancelled run left output files: %v", files)
	}
}

func TestRunWritesManifest(t *testing.T) {
	cfg := testConfig()
	cfg.Manifest = true
	r, dir := newTestRunner(t, cfg, synthSources(cfg.NullRate))

	p := plan.Build(60, 2, 3)
	if err := r.Run(context.Background(), p); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.manifest.json"))
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if m.RunID == "" {
		t.Error("manifest has no run_id")
	}
	if m.TotalRows != 60 {
		t.Errorf("manifest total_rows = %d, want 60", m.TotalRows)
	}
	if m.Schema != tables.SchemaVersion {
		t.Errorf("manifest schema_version = %q, want %q", m.Schema, tables.SchemaVersion)
	}
	if want := (tables.EventRow{}).TableName(); m.Table != want {
		t.Errorf("manifest table = %q, want %q", m.Table, want)
	}
	if len(m.Files) != 2 {
		t.Fatalf("manifest lists %d files, want 2", len(m.Files))
	}
	for _, f := range m.Files {
		info, err := os.Stat(filepath.Join(dir, f.Name))
		if err != nil {
			t.Errorf("manifest names missing file %s", f.Name)
			continue
		}
		if info.Size() != f.Bytes {
			t.Errorf("%s: manifest says %d bytes, file is %d", f.Name, f.Bytes, info.Size())
		}
		if f.Checksum == "" {
			t.Errorf("%s: manifest has no checksum", f.Name)
		}
	}
}
