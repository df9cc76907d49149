package tables

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// ChecksumWriter computes a SHA256 checksum over everything written
// through it. Wrap an output destination with io.MultiWriter to checksum a
// file while streaming it out.
type ChecksumWriter struct {
	h hash.Hash
}

// NewChecksumWriter creates an empty checksum accumulator.
func NewChecksumWriter() *ChecksumWriter {
	return &ChecksumWriter{h: sha256.New()}
}

func (c *ChecksumWriter) Write(p []byte) (int, error) {
	return c.h.Write(p)
}

// Sum returns the checksum of all bytes written so far.
func (c *ChecksumWriter) Sum() string {
	return "sha256:" + hex.EncodeToString(c.h.Sum(nil))
}
