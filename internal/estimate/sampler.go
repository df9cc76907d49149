package estimate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/veridata/parqgen/internal/metrics"
	"github.com/veridata/parqgen/internal/tables"
)

// ErrInsufficientSample is returned when a sample batch produces no rows or
// serializes to zero bytes; sizing cannot proceed without a usable sample.
var ErrInsufficientSample = errors.New("sample produced no measurable data")

// SampleSeed is the fixed seed for estimation sampling, so repeated
// estimates of the same target are identical.
const SampleSeed = 42

// Measurement is one observation of serialized size versus row count.
type Measurement struct {
	Rows        int64
	Bytes       int64
	BytesPerRow float64
}

// RowSource produces one synthetic row per call.
type RowSource interface {
	Row() (tables.EventRow, error)
}

// RowEncoder serializes a batch of rows and reports the byte size.
type RowEncoder interface {
	Write(dst io.Writer, rows []tables.EventRow) (int64, error)
}

// Sampler measures the serialized size of synthetic row batches.
type Sampler interface {
	Measure(ctx context.Context, rows int64) (Measurement, error)
}

// writerSampler materializes rows from a source and serializes them through
// the real parquet encoder into a discarded sink, measuring only the size.
type writerSampler struct {
	src RowSource
	enc RowEncoder
}

// NewSampler creates a sampler over the given source and encoder.
func NewSampler(src RowSource, enc RowEncoder) Sampler {
	return &writerSampler{src: src, enc: enc}
}

func (s *writerSampler) Measure(ctx context.Context, rows int64) (Measurement, error) {
	if rows <= 0 {
		return Measurement{}, ErrInsufficientSample
	}

	batch := make([]tables.EventRow, 0, rows)
	for i := int64(0); i < rows; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return Measurement{}, err
			}
		}
		row, err := s.src.Row()
		if err != nil {
			return Measurement{}, fmt.Errorf("synthesize sample row: %w", err)
		}
		batch = append(batch, row)
	}

	n, err := s.enc.Write(io.Discard, batch)
	if err != nil {
		return Measurement{}, fmt.Errorf("serialize sample: %w", err)
	}
	if n == 0 {
		return Measurement{}, ErrInsufficientSample
	}

	if m := metrics.Get(); m != nil {
		m.SampleRows.Add(float64(rows))
	}

	return Measurement{
		Rows:        rows,
		Bytes:       n,
		BytesPerRow: float64(n) / float64(rows),
	}, nil
}
