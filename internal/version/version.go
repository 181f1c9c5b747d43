// Package version holds build metadata injected via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the git SHA.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("folio %s (commit: %s, built: %s, go: %s)", Version, Commit, Date, runtime.Version())
}
