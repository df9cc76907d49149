package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigConflict is returned when the requested flag combination
	// cannot be resolved into a single sizing target.
	ErrConfigConflict = errors.New("conflicting configuration")

	// ErrInvalidSizeUnit is returned for size strings that cannot be parsed.
	ErrInvalidSizeUnit = errors.New("invalid size format")
)

// Format selects how complex columns (list, map, struct) are encoded.
type Format string

const (
	// FormatNative writes complex columns as parquet LIST/MAP/group types.
	FormatNative Format = "native"
	// FormatJSON writes complex columns as JSON strings for engines that
	// cannot read nested parquet types.
	FormatJSON Format = "json"
)

// Options carries the raw CLI flag values before resolution.
type Options struct {
	Rows        int64
	Size        string
	Files       int
	PerFile     bool
	Processes   int
	Output      string
	Format      string
	Compression string
	Profile     string
	MetricsAddr string
	Manifest    bool
	CatalogDSN  string
	LogLevel    string
	LogFormat   string
}

// Config is the resolved, validated run configuration.
// SizeBytes is zero when sizing by row count.
type Config struct {
	Rows        int64
	SizeBytes   int64
	PerFile     bool
	Files       int
	Processes   int
	Output      string
	Format      Format
	Compression string
	NullRate    float64
	MetricsAddr string
	Manifest    bool
	CatalogDSN  string
	LogLevel    string
	LogFormat   string
}

// Profile holds optional defaults loaded from a YAML file.
// Explicit CLI flags always win over profile values.
type Profile struct {
	Format      string   `yaml:"format"`
	Compression string   `yaml:"compression"`
	NullRate    *float64 `yaml:"null_rate"`
	MetricsAddr string   `yaml:"metrics_addr"`
	CatalogDSN  string   `yaml:"catalog_dsn"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadProfile reads a YAML profile from disk.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Resolve validates the flag values, merges in the optional profile and
// returns the run configuration. All sizing conflicts are reported here,
// before any sampling or generation starts.
func Resolve(opts Options) (Config, error) {
	cfg := Config{
		Rows:        opts.Rows,
		PerFile:     opts.PerFile,
		Files:       opts.Files,
		Processes:   opts.Processes,
		Output:      opts.Output,
		Format:      FormatNative,
		Compression: "snappy",
		NullRate:    0.05,
		MetricsAddr: opts.MetricsAddr,
		Manifest:    opts.Manifest,
		CatalogDSN:  opts.CatalogDSN,
		LogLevel:    opts.LogLevel,
		LogFormat:   opts.LogFormat,
	}

	if opts.Profile != "" {
		p, err := LoadProfile(opts.Profile)
		if err != nil {
			return Config{}, err
		}
		if p.Format != "" {
			cfg.Format = Format(p.Format)
		}
		if p.Compression != "" {
			cfg.Compression = p.Compression
		}
		if p.NullRate != nil {
			cfg.NullRate = *p.NullRate
		}
		if p.MetricsAddr != "" && cfg.MetricsAddr == "" {
			cfg.MetricsAddr = p.MetricsAddr
		}
		if p.CatalogDSN != "" && cfg.CatalogDSN == "" {
			cfg.CatalogDSN = p.CatalogDSN
		}
		if p.Log.Level != "" && cfg.LogLevel == "" {
			cfg.LogLevel = p.Log.Level
		}
		if p.Log.Format != "" && cfg.LogFormat == "" {
			cfg.LogFormat = p.Log.Format
		}
	}

	if opts.Format != "" {
		cfg.Format = Format(opts.Format)
	}
	if opts.Compression != "" {
		cfg.Compression = opts.Compression
	}

	switch cfg.Format {
	case FormatNative, FormatJSON:
	default:
		return Config{}, fmt.Errorf("%w: unknown format %q (want native or json)", ErrConfigConflict, cfg.Format)
	}

	switch cfg.Compression {
	case "none", "snappy", "zstd", "gzip":
	default:
		return Config{}, fmt.Errorf("%w: unknown compression %q (want none, snappy, zstd or gzip)", ErrConfigConflict, cfg.Compression)
	}

	if cfg.Files < 1 {
		return Config{}, fmt.Errorf("%w: -files must be at least 1, got %d", ErrConfigConflict, cfg.Files)
	}
	if cfg.Processes < 1 {
		return Config{}, fmt.Errorf("%w: -processes must be at least 1, got %d", ErrConfigConflict, cfg.Processes)
	}
	if cfg.NullRate < 0 || cfg.NullRate >= 1 {
		return Config{}, fmt.Errorf("%w: null_rate must be in [0,1), got %v", ErrConfigConflict, cfg.NullRate)
	}
	if cfg.Output == "" {
		return Config{}, fmt.Errorf("%w: -output must not be empty", ErrConfigConflict)
	}

	rowsSet := opts.Rows != 0
	sizeSet := opts.Size != ""

	switch {
	case rowsSet && sizeSet:
		return Config{}, fmt.Errorf("%w: -rows and -size are mutually exclusive", ErrConfigConflict)
	case !rowsSet && !sizeSet:
		return Config{}, fmt.Errorf("%w: one of -rows or -size is required", ErrConfigConflict)
	case rowsSet:
		if opts.Rows < 0 {
			return Config{}, fmt.Errorf("%w: -rows must be positive, got %d", ErrConfigConflict, opts.Rows)
		}
	default:
		size, err := ParseSize(opts.Size)
		if err != nil {
			return Config{}, err
		}
		if size <= 0 {
			return Config{}, fmt.Errorf("%w: -size must be positive, got %q", ErrConfigConflict, opts.Size)
		}
		cfg.SizeBytes = size
	}

	if cfg.PerFile {
		if !sizeSet {
			return Config{}, fmt.Errorf("%w: -per-file requires -size", ErrConfigConflict)
		}
		if cfg.Files < 2 {
			return Config{}, fmt.Errorf("%w: -per-file requires -files greater than 1", ErrConfigConflict)
		}
	}

	return cfg, nil
}

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([KMGT]?B?)$`)

// ParseSize converts a human size string ("500KB", "100MB", "2G") into bytes.
// A bare number defaults to megabytes.
func ParseSize(s string) (int64, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(s))

	m := sizePattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, fmt.Errorf("%w: %q (use forms like 100MB or 1GB)", ErrInvalidSizeUnit, s)
	}

	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidSizeUnit, s, err)
	}

	var mult float64
	switch m[2] {
	case "B":
		mult = 1
	case "K", "KB":
		mult = 1 << 10
	case "", "M", "MB":
		mult = 1 << 20
	case "G", "GB":
		mult = 1 << 30
	case "T", "TB":
		mult = 1 << 40
	default:
		return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidSizeUnit, m[2], s)
	}

	return int64(number * mult), nil
}

// OutputName returns the file name for the given 1-indexed file number.
// Single-file runs use the base name as given; multi-file runs insert a
// zero-padded part number before the extension.
func OutputName(base string, num, total int) string {
	if total <= 1 {
		return base
	}
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".parquet"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_part_%03d%s", stem, num, ext)
}
