// Package version reports the build identity of metaast binaries. The
// variables are set at link time with -ldflags "-X".
package version

import (
	"fmt"
	"runtime/debug"
)

//nolint:gochecknoglobals // Set by the linker.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the resolved build identity.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Current returns the linked identity, filling gaps from the module build
// info when the binary was built with go install.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	if info.Version == "dev" && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}

	for _, setting := range build.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = setting.Value
			}
		}
	}

	return info
}

func (info Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}
