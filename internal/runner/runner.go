// Package runner executes a work plan: a fixed pool of workers generates
// row shards in parallel, and shards are assembled into final parquet files
// in deterministic task order. Files are generated and written one at a
// time, so peak memory tracks the largest file rather than the whole run.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridata/parqgen/internal/catalog"
	"github.com/veridata/parqgen/internal/config"
	"github.com/veridata/parqgen/internal/logging"
	"github.com/veridata/parqgen/internal/metrics"
	"github.com/veridata/parqgen/internal/plan"
	"github.com/veridata/parqgen/internal/storage"
	"github.com/veridata/parqgen/internal/tables"
)

// RowSource produces one synthetic row per call.
type RowSource interface {
	Row() (tables.EventRow, error)
}

// SourceFactory creates an independent row source for the given seed.
// Every task gets its own source, so tasks share no mutable state.
type SourceFactory func(seed int64) RowSource

// Runner drives one generation run.
type Runner struct {
	cfg     config.Config
	writer  *tables.Writer
	sink    storage.Sink
	base    string
	sources SourceFactory
	catalog catalog.Writer
	log     *slog.Logger
}

// New creates a runner. base is the output base file name within the sink.
func New(cfg config.Config, writer *tables.Writer, sink storage.Sink, base string, sources SourceFactory) *Runner {
	return &Runner{
		cfg:     cfg,
		writer:  writer,
		sink:    sink,
		base:    base,
		sources: sources,
		log:     logging.Component("runner"),
	}
}

// WithCatalog attaches a catalog writer that records completed runs.
func (r *Runner) WithCatalog(w catalog.Writer) *Runner {
	r.catalog = w
	return r
}

// shardResult is returned from workers to the collector.
type shardResult struct {
	task plan.Task
	rows []tables.EventRow
	err  error
}

// Run executes the plan file by file: each file's shards are generated by
// the worker pool, assembled, written, and dropped before the next file
// starts. Any task failure aborts outstanding work, discards partial
// shards, removes any files already written, and surfaces the first error.
// On success all planned files exist at their final names.
func (r *Runner) Run(ctx context.Context, p plan.Plan) error {
	start := time.Now()
	runID := uuid.New().String()

	r.log.Info("starting generation",
		"run_id", runID,
		"total_rows", p.TotalRows(),
		"files", len(p.Files),
		"workers", r.cfg.Processes,
	)

	var infos []FileInfo
	cleanup := func() {
		for _, info := range infos {
			if err := r.sink.Remove(ctx, info.Name); err != nil {
				r.log.Warn("cleanup failed", "file", info.Name, "error", err)
			}
		}
	}

	for _, alloc := range p.Files {
		tasks := p.Tasks[alloc.Index]

		shards, err := r.generate(ctx, tasks)
		if err != nil {
			cleanup()
			return err
		}

		info, err := r.writeFile(ctx, alloc, len(p.Files), tasks, shards)
		if err != nil {
			cleanup()
			return err
		}
		infos = append(infos, info)
	}

	if r.cfg.Manifest {
		if err := r.writeManifest(ctx, runID, p, infos); err != nil {
			return err
		}
	}

	if r.catalog != nil {
		if err := r.recordRun(ctx, runID, p, infos); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	rowsPerSec := float64(p.TotalRows()) / elapsed.Seconds()
	r.log.Info("generation complete",
		"run_id", runID,
		"files", len(infos),
		"total_rows", p.TotalRows(),
		"elapsed", elapsed.Round(time.Millisecond),
		"rows_per_sec", int64(rowsPerSec),
	)
	return nil
}

// generate runs the worker pool over one file's tasks and returns its
// shards keyed by worker slot.
func (r *Runner) generate(ctx context.Context, tasks []plan.Task) (map[int][]tables.EventRow, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workQueue := make(chan plan.Task)
	results := make(chan shardResult)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Processes; i++ {
		wg.Add(1)
		go r.workerLoop(ctx, i, workQueue, results, &wg)
	}

	// Dispatcher
	go func() {
		defer close(workQueue)
		for _, t := range tasks {
			select {
			case <-ctx.Done():
				return
			case workQueue <- t:
			}
		}
	}()

	// Close results when workers finish
	go func() {
		wg.Wait()
		close(results)
	}()

	shards := make(map[int][]tables.EventRow, len(tasks))
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		shards[res.task.Worker] = res.rows
	}

	if firstErr != nil {
		if m := metrics.Get(); m != nil {
			m.WorkerFailures.Inc()
		}
		return nil, fmt.Errorf("worker failed: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return shards, nil
}

// workerLoop processes tasks until the queue drains or the run is aborted.
func (r *Runner) workerLoop(ctx context.Context, workerID int, in <-chan plan.Task, out chan<- shardResult, wg *sync.WaitGroup) {
	defer wg.Done()

	log := logging.WorkerLogger(workerID)
	for task := range in {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		rows, err := r.buildShard(ctx, task)
		elapsed := time.Since(start)

		if err == nil {
			log.Debug("shard built",
				"file", task.File,
				"rows", task.Rows(),
				"duration_ms", elapsed.Milliseconds(),
			)
			if m := metrics.Get(); m != nil {
				m.TaskDuration.Observe(elapsed.Seconds())
				m.RowsGenerated.Add(float64(task.Rows()))
			}
		}

		select {
		case out <- shardResult{task: task, rows: rows, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

// buildShard materializes one task's row range from a freshly seeded source.
func (r *Runner) buildShard(ctx context.Context, task plan.Task) ([]tables.EventRow, error) {
	src := r.sources(task.Seed())

	rows := make([]tables.EventRow, 0, task.Rows())
	for i := task.Start; i < task.End; i++ {
		if (i-task.Start)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := src.Row()
		if err != nil {
			return nil, fmt.Errorf("file %d row %d: %w", task.File, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeFile concatenates one file's shards in worker order and writes the
// final file through the sink.
func (r *Runner) writeFile(ctx context.Context, alloc plan.FileAlloc, totalFiles int, tasks []plan.Task, shards map[int][]tables.EventRow) (FileInfo, error) {
	var rows []tables.EventRow
	for _, task := range tasks {
		rows = append(rows, shards[task.Worker]...)
	}

	name := config.OutputName(r.base, alloc.Index+1, totalFiles)
	checksum := tables.NewChecksumWriter()

	n, err := r.sink.WriteFile(ctx, name, func(w io.Writer) error {
		_, werr := r.writer.Write(io.MultiWriter(w, checksum), rows)
		return werr
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("write %s: %w", name, err)
	}

	r.log.Info("file written",
		"file", r.sink.URI(name),
		"rows", alloc.Rows,
		"bytes", n,
	)
	if m := metrics.Get(); m != nil {
		m.BytesWritten.Add(float64(n))
		m.FilesWritten.Inc()
	}

	return FileInfo{
		Name:     name,
		Rows:     alloc.Rows,
		Bytes:    n,
		Checksum: checksum.Sum(),
	}, nil
}
