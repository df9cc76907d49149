// Package estimate converts byte-size targets into row-count estimates by
// sampling the real serialization path and refining iteratively.
package estimate

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/veridata/parqgen/internal/logging"
)

const (
	// maxIterations bounds the refinement loop regardless of tier.
	maxIterations = 5

	// mediumSubsample is the fraction of the candidate row count that the
	// medium tier materializes per iteration; size is extrapolated linearly.
	mediumSubsample = 0.10

	// mediumSubsampleFloor keeps medium-tier probes statistically useful.
	mediumSubsampleFloor = 1000

	// hugeAdjust compensates the single-sample estimate for targets over
	// 1GB, where row-size variance tends to undershoot.
	hugeAdjust = 1.05
)

// Result is the terminal output of an estimation attempt.
type Result struct {
	Rows          int64
	Iterations    int
	LastDeviation float64
}

// Estimator turns a byte target into a row count. A fresh sampler is drawn
// for every estimation attempt so results are reproducible.
type Estimator struct {
	newSampler func() Sampler
	log        *slog.Logger
}

// New creates an estimator. newSampler must return an independent,
// deterministically seeded sampler on each call.
func New(newSampler func() Sampler) *Estimator {
	return &Estimator{
		newSampler: newSampler,
		log:        logging.Component("estimate"),
	}
}

// RowsForSize estimates how many rows serialize to targetBytes.
// Refinement converges within the tier tolerance or gives up after the
// iteration cap; a residual deviation is reported, never an error.
func (e *Estimator) RowsForSize(ctx context.Context, targetBytes int64) (Result, error) {
	tier := TierFor(targetBytes)
	sampler := e.newSampler()

	sampleRows := tier.SampleRows(targetBytes)
	e.log.Info("sampling for size estimate",
		"target_bytes", targetBytes,
		"tier", tier.String(),
		"sample_rows", sampleRows,
	)

	m, err := sampler.Measure(ctx, sampleRows)
	if err != nil {
		return Result{}, err
	}

	rows := ceilRows(float64(targetBytes) / m.BytesPerRow)
	res := Result{Rows: rows, Iterations: 1}

	e.log.Info("initial estimate",
		"sample_bytes", m.Bytes,
		"bytes_per_row", m.BytesPerRow,
		"estimated_rows", rows,
	)

	if tier == TierHuge {
		res.Rows = ceilRows(float64(rows) * hugeAdjust)
	}
	if !tier.Refines() {
		e.log.Info("skipping refinement", "tier", tier.String(), "rows", res.Rows)
		return res, nil
	}

	return e.refine(ctx, sampler, tier, targetBytes, res)
}

// refine narrows the estimate by measuring candidate batches until the
// deviation falls inside the tier tolerance or the iteration cap is hit.
// The medium tier materializes a 10% subsample per iteration and
// extrapolates; the small tier materializes the full candidate.
func (e *Estimator) refine(ctx context.Context, sampler Sampler, tier Tier, targetBytes int64, res Result) (Result, error) {
	current := res.Rows
	tolerance := tier.Tolerance()

	for i := 0; i < maxIterations; i++ {
		probe := current
		scale := 1.0
		if tier == TierMedium {
			probe = int64(float64(current) * mediumSubsample)
			if probe < mediumSubsampleFloor {
				probe = mediumSubsampleFloor
			}
			if probe > current {
				probe = current
			}
			scale = float64(current) / float64(probe)
		}

		m, err := sampler.Measure(ctx, probe)
		if err != nil {
			return res, err
		}

		actual := float64(m.Bytes) * scale
		deviation := (actual - float64(targetBytes)) / float64(targetBytes)

		res.Rows = current
		res.Iterations++
		res.LastDeviation = deviation

		e.log.Info("refinement iteration",
			"iteration", i+1,
			"candidate_rows", current,
			"probe_rows", probe,
			"measured_bytes", int64(actual),
			"deviation", deviation,
		)

		if math.Abs(deviation) <= tolerance {
			e.log.Info("estimate converged", "rows", current, "deviation", deviation)
			return res, nil
		}

		current = nextEstimate(current, deviation)
		res.Rows = current
	}

	// Out of iterations: accept the last corrected estimate and report the
	// residual deviation rather than failing the run.
	e.log.Warn("refinement did not converge, accepting last estimate",
		"rows", res.Rows,
		"residual_deviation", res.LastDeviation,
	)
	return res, nil
}

// RowsPerFile resolves a per-file byte target into one independent row
// estimate per file. Each file's estimator draws its samples from that
// file's own sampler, so the resolved row counts need not be equal.
func RowsPerFile(ctx context.Context, files int, targetBytes int64, newSampler func(file int) Sampler) ([]Result, error) {
	out := make([]Result, files)
	for i := 0; i < files; i++ {
		file := i
		est := New(func() Sampler { return newSampler(file) })
		res, err := est.RowsForSize(ctx, targetBytes)
		if err != nil {
			return nil, fmt.Errorf("estimate file %d: %w", i+1, err)
		}
		out[i] = res
	}
	return out, nil
}

// nextEstimate applies a proportional correction assuming near-linear
// size-per-row. If row size varies with row index (skewed array lengths,
// for example) this correction can oscillate; the iteration cap bounds the
// damage and the residual deviation is reported.
func nextEstimate(current int64, deviation float64) int64 {
	factor := 1 + deviation
	if factor <= 0 {
		return current
	}
	next := int64(float64(current) / factor)
	if next < 1 {
		next = 1
	}
	return next
}

func ceilRows(v float64) int64 {
	n := int64(math.Ceil(v))
	if n < 1 {
		n = 1
	}
	return n
}
