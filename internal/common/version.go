package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Build metadata, stamped via -ldflags at release time.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// ResolveVersion prefers the .version file the release script drops next to
// the binary, falling back to the compiled-in value.
func ResolveVersion() string {
	if exe, err := os.Executable(); err == nil {
		data, err := os.ReadFile(filepath.Join(filepath.Dir(exe), ".version"))
		if err == nil {
			if v := strings.TrimSpace(string(data)); v != "" {
				Version = v
			}
		}
	}
	return Version
}

// VersionString renders the full version line used in logs and crash reports.
func VersionString() string {
	return fmt.Sprintf("%s (build %s, commit %s)", Version, Build, GitCommit)
}
