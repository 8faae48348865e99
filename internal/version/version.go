// Package version carries the build identity stamped into release
// binaries.
package version

import "fmt"

// Overridden via -ldflags at release time, e.g.
// -X vulnmap/internal/version.Commit=$(git rev-parse HEAD).
var (
	Version   = "1.0.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info renders the version with a short commit suffix when one was
// stamped in.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return fmt.Sprintf("%s (%s)", Version, Commit[:7])
	}
	return Version
}

// Full renders the multi-line form shown by the version command.
func Full() string {
	return fmt.Sprintf("vulnmap version %s\nCommit: %s\nBuilt: %s", Version, Commit, BuildDate)
}
