// Package version holds the build identity of the dashboard binary.
package version

import "fmt"

// Set at build time with -ldflags "-X github.com/knx2openhab/dashboard/internal/version.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Build is the build identity reported by GET /api/version.
type Build struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Current returns the identity of the running binary.
func Current() Build {
	return Build{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}
}

// String renders the version for command line output.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
