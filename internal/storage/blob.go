package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver (also B2, R2, MinIO)
)

// BlobSink writes output files to an object-store bucket.
type BlobSink struct {
	bucket *blob.Bucket
	scheme string
	name   string
	prefix string
}

// NewBlobSink opens a bucket for the given scheme (gs or s3) and writes all
// files under the given key prefix.
func NewBlobSink(ctx context.Context, scheme, bucketName, prefix string) (*BlobSink, error) {
	bucket, err := blob.OpenBucket(ctx, fmt.Sprintf("%s://%s", scheme, bucketName))
	if err != nil {
		return nil, fmt.Errorf("open bucket %s://%s: %w", scheme, bucketName, err)
	}

	return &BlobSink{
		bucket: bucket,
		scheme: scheme,
		name:   bucketName,
		prefix: prefix,
	}, nil
}

func (s *BlobSink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// WriteFile streams the file into the bucket. Bucket writes are only
// visible after a successful Close, so a failed write never publishes a
// partial object.
func (s *BlobSink) WriteFile(ctx context.Context, name string, write func(io.Writer) error) (int64, error) {
	key := s.key(name)

	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return 0, fmt.Errorf("create writer for %s: %w", key, err)
	}

	cw := &countingWriter{w: w}
	if err := write(cw); err != nil {
		w.Close()
		return 0, err
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close writer for %s: %w", key, err)
	}

	return cw.n, nil
}

// Remove deletes a written object.
func (s *BlobSink) Remove(ctx context.Context, name string) error {
	return s.bucket.Delete(ctx, s.key(name))
}

// URI returns the canonical URI for the given file name.
func (s *BlobSink) URI(name string) string {
	return fmt.Sprintf("%s://%s/%s", s.scheme, s.name, s.key(name))
}

// Close releases the bucket handle.
func (s *BlobSink) Close() error {
	return s.bucket.Close()
}
