package config

import "fmt"

// Build metadata for the api, dispatch-worker and vaichover binaries, stamped
// by the release build:
//
//	go build -ldflags "-X vaichover/internal/config.version=$(git describe --tags) \
//	    -X vaichover/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X vaichover/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/...
//
// Local builds keep the placeholders.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo reads the stamped metadata. LoadConfig stores it in
// Config.Build.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// String renders the metadata for startup logs, e.g. "v1.4.0 (3f2c9ab, 2026-10-14T09:00:00Z)".
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", b.Version, b.Commit, b.BuildTime)
}
