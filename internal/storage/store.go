// Package storage abstracts where finished output files land: a local
// directory or an object-store bucket addressed by URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// Sink writes named output files to their final destination.
type Sink interface {
	// WriteFile streams one file through the write callback and returns the
	// number of bytes written. The write must be atomic where the backend
	// allows it: partially written files are never left at the final name.
	WriteFile(ctx context.Context, name string, write func(io.Writer) error) (int64, error)

	// Remove deletes a previously written file (best-effort cleanup).
	Remove(ctx context.Context, name string) error

	// URI returns the canonical URI for the given file name.
	URI(name string) string

	// Close releases any resources.
	Close() error
}

// Open resolves an output argument into a sink and a base file name.
// Plain paths map to the local filesystem; gs:// and s3:// URLs map to the
// corresponding bucket.
func Open(ctx context.Context, output string) (Sink, string, error) {
	if strings.HasPrefix(output, "gs://") || strings.HasPrefix(output, "s3://") {
		u, err := url.Parse(output)
		if err != nil {
			return nil, "", fmt.Errorf("parse output URL %s: %w", output, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if key == "" {
			return nil, "", fmt.Errorf("output URL %s has no object name", output)
		}

		base := path.Base(key)
		prefix := path.Dir(key)
		if prefix == "." {
			prefix = ""
		}

		sink, err := NewBlobSink(ctx, u.Scheme, u.Host, prefix)
		if err != nil {
			return nil, "", err
		}
		return sink, base, nil
	}

	sink, base, err := NewLocalSink(output)
	if err != nil {
		return nil, "", err
	}
	return sink, base, nil
}
