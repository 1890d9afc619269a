// Package version holds build metadata stamped in with -ldflags.
package version

// Set via -ldflags "-X github.com/sydlexius/recfinder/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
)
