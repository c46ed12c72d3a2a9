// Package version holds ragqa build metadata, set with
// -ldflags "-X github.com/kailas-cloud/ragqa/internal/version.Version=...".
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
