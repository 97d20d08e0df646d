package app

import "fmt"

// Build metadata, injected at build time via -ldflags:
//
//	go build -ldflags "\
//	  -X github.com/spdarshan46/pund-management/internal/app.Version=v1.0.0 \
//	  -X github.com/spdarshan46/pund-management/internal/app.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/spdarshan46/pund-management/internal/app.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// BuildVersion returns a single human-readable build identifier.
func BuildVersion() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime)
}
