package runner

// Version and GitSHA are set at build time via -ldflags.
var (
	Version = "dev"
	GitSHA  = "unknown"
)
