package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/veridata/parqgen/internal/catalog"
	"github.com/veridata/parqgen/internal/config"
	"github.com/veridata/parqgen/internal/estimate"
	"github.com/veridata/parqgen/internal/logging"
	"github.com/veridata/parqgen/internal/metrics"
	"github.com/veridata/parqgen/internal/plan"
	"github.com/veridata/parqgen/internal/runner"
	"github.com/veridata/parqgen/internal/storage"
	"github.com/veridata/parqgen/internal/synth"
	"github.com/veridata/parqgen/internal/tables"
)

func main() {
	var opts config.Options
	flag.Int64Var(&opts.Rows, "rows", 0, "exact total row count (mutually exclusive with -size)")
	flag.StringVar(&opts.Size, "size", "", "target output size, e.g. 500KB, 100MB, 2GB; bare numbers mean MB (mutually exclusive with -rows)")
	flag.IntVar(&opts.Files, "files", 1, "number of output files")
	flag.BoolVar(&opts.PerFile, "per-file", false, "treat -size as per-file size instead of total (requires -files > 1)")
	flag.IntVar(&opts.Processes, "processes", 1, "worker pool size")
	flag.StringVar(&opts.Output, "output", "test_data.parquet", "output path; multi-file runs insert _part_NNN before the extension")
	flag.StringVar(&opts.Format, "format", "", "complex column encoding: native or json (default native)")
	flag.StringVar(&opts.Compression, "compression", "", "parquet compression: none, snappy, zstd or gzip (default snappy)")
	flag.StringVar(&opts.Profile, "config", "", "optional YAML profile with defaults")
	flag.StringVar(&opts.MetricsAddr, "metrics-addr", "", "expose Prometheus metrics at this address (e.g. :9090)")
	flag.BoolVar(&opts.Manifest, "manifest", false, "write a run manifest next to the output files")
	flag.StringVar(&opts.CatalogDSN, "catalog-dsn", "", "record completed runs in this PostgreSQL catalog")
	flag.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error (default info)")
	flag.StringVar(&opts.LogFormat, "log-format", "", "log format: text or json (default text)")
	flag.Parse()

	cfg, err := config.Resolve(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parqgen: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	slog.Info("parqgen", "version", runner.Version, "git_sha", runner.GitSHA)

	metrics.Init("parqgen")
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal, aborting", "signal", sig.String())
		cancel()
	}()

	writer, err := tables.NewWriter(cfg.Format, cfg.Compression)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	sink, base, err := storage.Open(ctx, cfg.Output)
	if err != nil {
		log.Fatalf("[main] open output: %v", err)
	}
	defer sink.Close()

	p, err := resolvePlan(ctx, cfg, writer)
	if err != nil {
		log.Fatalf("[main] resolve plan: %v", err)
	}

	cat, err := catalog.NewWriter(ctx, catalog.Config{PostgresDSN: cfg.CatalogDSN})
	if err != nil {
		log.Fatalf("[main] open catalog: %v", err)
	}
	defer cat.Close()

	r := runner.New(cfg, writer, sink, base, func(seed int64) runner.RowSource {
		return synth.New(seed, cfg.NullRate)
	}).WithCatalog(cat)

	if err := r.Run(ctx, p); err != nil {
		if ctx.Err() != nil {
			log.Fatalf("[main] aborted: %v", err)
		}
		log.Fatalf("[main] generation failed: %v", err)
	}
}

// resolvePlan turns the sizing target into a concrete work plan. Byte
// targets run size estimation first; per-file targets estimate every file
// independently from its own sample.
func resolvePlan(ctx context.Context, cfg config.Config, writer *tables.Writer) (plan.Plan, error) {
	if cfg.SizeBytes == 0 {
		return plan.Build(cfg.Rows, cfg.Files, cfg.Processes), nil
	}

	if cfg.PerFile {
		results, err := estimate.RowsPerFile(ctx, cfg.Files, cfg.SizeBytes, func(file int) estimate.Sampler {
			return estimate.NewSampler(synth.New(estimate.SampleSeed+int64(file), cfg.NullRate), writer)
		})
		if err != nil {
			return plan.Plan{}, err
		}
		fileRows := make([]int64, len(results))
		for i, res := range results {
			fileRows[i] = res.Rows
			slog.Info("per-file estimate",
				"file", i+1,
				"rows", res.Rows,
				"iterations", res.Iterations,
				"deviation", res.LastDeviation,
			)
			recordEstimate(res)
		}
		return plan.FromFileRows(fileRows, cfg.Processes), nil
	}

	est := estimate.New(samplerFactory(cfg, writer))
	res, err := est.RowsForSize(ctx, cfg.SizeBytes)
	if err != nil {
		return plan.Plan{}, err
	}
	slog.Info("size estimate resolved",
		"rows", res.Rows,
		"iterations", res.Iterations,
		"deviation", res.LastDeviation,
	)
	recordEstimate(res)
	return plan.Build(res.Rows, cfg.Files, cfg.Processes), nil
}

// samplerFactory returns a fresh deterministic sampler per estimation
// attempt.
func samplerFactory(cfg config.Config, writer *tables.Writer) func() estimate.Sampler {
	return func() estimate.Sampler {
		return estimate.NewSampler(synth.New(estimate.SampleSeed, cfg.NullRate), writer)
	}
}

func recordEstimate(res estimate.Result) {
	if m := metrics.Get(); m != nil {
		m.EstimationIterations.Add(float64(res.Iterations))
		m.EstimationDeviation.Set(res.LastDeviation)
	}
}
