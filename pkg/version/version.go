// Package version carries build information stamped in with -ldflags -X.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata. Release builds override these through -ldflags.
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// InitBinaryVersion fills Version and Commit from the module build info when
// the linker did not set them, e.g. after go install.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "<unknown>" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "<unknown>" {
				Date = setting.Value
			}
		}
	}
}

// String formats the build metadata for the version command.
func String(binary string) string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", binary, Version, Commit, Date)
}
