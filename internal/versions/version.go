// Package versions reports build information of the weblate-omp binary.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const unknown = "unknown"

// Set at build time with -ldflags.
var (
	Version   = "dev"
	Commit    = unknown
	BuildDate = unknown
)

// Info describes the running build
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information of the running binary
func Get() Info {
	commit, built := Commit, BuildDate
	if strings.HasPrefix(Version, "dev") {
		if bi, ok := debug.ReadBuildInfo(); ok {
			commit, built = fromBuildSettings(bi.Settings, commit, built)
		}
	}
	return build(Version, commit, built)
}

func fromBuildSettings(settings []debug.BuildSetting, commit, built string) (string, string) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if commit == unknown {
				commit = s.Value
			}
		case "vcs.time":
			if built == unknown {
				built = s.Value
			}
		}
	}
	return commit, built
}

func build(version, commit, built string) Info {
	if t, err := time.Parse(time.RFC3339, built); err == nil {
		built = t.UTC().Format("2006-01-02 15:04:05 MST")
	}
	// Development builds are named after the commit.
	if version == "dev" {
		version = fmt.Sprintf("build-%.*s", 8, commit)
	}
	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: built,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
