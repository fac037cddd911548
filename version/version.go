package version

import (
	"runtime/debug"
	"time"
)

// Set with -ldflags -X.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the build information reported by /info and --version.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get returns the build information, completed from debug.ReadBuildInfo
// where the linker flags left gaps.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = shortCommit(s.Value)
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				if _, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuildTime = s.Value
				}
			}
		}
	}
	return info
}

// Short returns "version", "version-commit" or "version-commit-dirty".
func Short() string {
	return Get().String()
}

func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s += "-" + i.GitCommit
		if i.Dirty {
			s += "-dirty"
		}
	}
	return s
}

// IsRelease reports whether the binary was stamped with a clean version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !i.Dirty
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
