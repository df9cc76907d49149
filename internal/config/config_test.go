package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"100B", 100},
		{"1K", 1024},
		{"500KB", 500 * 1024},
		{"1.5KB", 1536},
		{"100MB", 100 << 20},
		{"100M", 100 << 20},
		{"100", 100 << 20}, // bare number defaults to MB
		{"2G", 2 << 30},
		{"1GB", 1 << 30},
		{"1TB", 1 << 40},
		{"  10 mb ", 10 << 20},
	}

	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if err != nil {
			t.Errorf("ParseSize(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseSizeInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "10XB", "MB", "-5MB", "10.5.5MB"} {
		if _, err := ParseSize(in); !errors.Is(err, ErrInvalidSizeUnit) {
			t.Errorf("ParseSize(%q) = %v, want ErrInvalidSizeUnit", in, err)
		}
	}
}

func TestResolveConflicts(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"rows and size", Options{Rows: 100, Size: "10MB", Files: 1, Processes: 1, Output: "o.parquet"}},
		{"neither rows nor size", Options{Files: 1, Processes: 1, Output: "o.parquet"}},
		{"rows zero", Options{Rows: 0, Files: 1, Processes: 1, Output: "o.parquet"}},
		{"negative rows", Options{Rows: -5, Files: 1, Processes: 1, Output: "o.parquet"}},
		{"size zero", Options{Size: "0MB", Files: 1, Processes: 1, Output: "o.parquet"}},
		{"per-file without size", Options{Rows: 100, PerFile: true, Files: 3, Processes: 1, Output: "o.parquet"}},
		{"per-file with one file", Options{Size: "10MB", PerFile: true, Files: 1, Processes: 1, Output: "o.parquet"}},
		{"zero files", Options{Rows: 100, Files: 0, Processes: 1, Output: "o.parquet"}},
		{"zero processes", Options{Rows: 100, Files: 1, Processes: 0, Output: "o.parquet"}},
		{"bad format", Options{Rows: 100, Files: 1, Processes: 1, Output: "o.parquet", Format: "csv"}},
		{"bad compression", Options{Rows: 100, Files: 1, Processes: 1, Output: "o.parquet", Compression: "lzma"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resolve(tt.opts); !errors.Is(err, ErrConfigConflict) {
				t.Errorf("Resolve() = %v, want ErrConfigConflict", err)
			}
		})
	}
}

func TestResolveInvalidSize(t *testing.T) {
	opts := Options{Size: "10XB", Files: 1, Processes: 1, Output: "o.parquet"}
	if _, err := Resolve(opts); !errors.Is(err, ErrInvalidSizeUnit) {
		t.Errorf("Resolve() = %v, want ErrInvalidSizeUnit", err)
	}
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(Options{Rows: 1000, Files: 2, Processes: 4, Output: "out.parquet"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Format != FormatNative {
		t.Errorf("Format = %q, want native", cfg.Format)
	}
	if cfg.Compression != "snappy" {
		t.Errorf("Compression = %q, want snappy", cfg.Compression)
	}
	if cfg.NullRate != 0.05 {
		t.Errorf("NullRate = %v, want 0.05", cfg.NullRate)
	}
	if cfg.SizeBytes != 0 {
		t.Errorf("SizeBytes = %d, want 0 for row-count sizing", cfg.SizeBytes)
	}
}

func TestResolveSize(t *testing.T) {
	cfg, err := Resolve(Options{Size: "500KB", Files: 3, PerFile: true, Processes: 2, Output: "out.parquet"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.SizeBytes != 500*1024 {
		t.Errorf("SizeBytes = %d, want %d", cfg.SizeBytes, 500*1024)
	}
	if !cfg.PerFile {
		t.Error("PerFile should be set")
	}
}

func TestResolveProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	profile := `format: json
compression: zstd
null_rate: 0.2
metrics_addr: ":9100"
catalog_dsn: "postgres://localhost/catalog"
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(profile), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	cfg, err := Resolve(Options{Rows: 10, Files: 1, Processes: 1, Output: "o.parquet", Profile: path})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Compression != "zstd" {
		t.Errorf("Compression = %q, want zstd", cfg.Compression)
	}
	if cfg.NullRate != 0.2 {
		t.Errorf("NullRate = %v, want 0.2", cfg.NullRate)
	}
	if cfg.MetricsAddr != ":9100" {
		t.Errorf("MetricsAddr = %q, want :9100", cfg.MetricsAddr)
	}
	if cfg.CatalogDSN != "postgres://localhost/catalog" {
		t.Errorf("CatalogDSN = %q", cfg.CatalogDSN)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("log config = %q/%q, want debug/json", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestResolveFlagsWinOverProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("compression: zstd\n"), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	cfg, err := Resolve(Options{Rows: 10, Files: 1, Processes: 1, Output: "o.parquet", Profile: path, Compression: "gzip"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Compression != "gzip" {
		t.Errorf("Compression = %q, want the explicit flag to win", cfg.Compression)
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		base  string
		num   int
		total int
		want  string
	}{
		{"test_data.parquet", 1, 1, "test_data.parquet"},
		{"test_data.parquet", 1, 3, "test_data_part_001.parquet"},
		{"test_data.parquet", 12, 100, "test_data_part_012.parquet"},
		{"noext", 2, 3, "noext_part_002.parquet"},
	}

	for _, tt := range tests {
		got := OutputName(tt.base, tt.num, tt.total)
		if got != tt.want {
			t.Errorf("OutputName(%q, %d, %d) = %q, want %q", tt.base, tt.num, tt.total, got, tt.want)
		}
	}
}
