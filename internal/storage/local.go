package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalSink writes output files to a local directory.
type LocalSink struct {
	dir string
}

// NewLocalSink creates a sink for the directory containing the output path
// and returns it together with the path's base name.
func NewLocalSink(output string) (*LocalSink, string, error) {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &LocalSink{dir: dir}, filepath.Base(output), nil
}

// WriteFile writes atomically using a temp file plus rename.
func (s *LocalSink) WriteFile(ctx context.Context, name string, write func(io.Writer) error) (int64, error) {
	final := filepath.Join(s.dir, name)
	tempPath := final + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("create temp file %s: %w", tempPath, err)
	}

	cw := &countingWriter{w: f}
	if err := write(cw); err != nil {
		f.Close()
		os.Remove(tempPath)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("close temp file %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, final); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("rename %s to %s: %w", tempPath, final, err)
	}

	return cw.n, nil
}

// Remove deletes a written file.
func (s *LocalSink) Remove(ctx context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URI returns the canonical URI for the given file name.
func (s *LocalSink) URI(name string) string {
	absPath, err := filepath.Abs(filepath.Join(s.dir, name))
	if err != nil {
		return "file://" + filepath.Join(s.dir, name)
	}
	return "file://" + absPath
}

// Close is a no-op for local storage.
func (s *LocalSink) Close() error {
	return nil
}

// countingWriter counts bytes passing through to the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
