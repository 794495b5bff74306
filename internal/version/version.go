// Package version carries the build identity stamped in by ldflags.
package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the released version, overridable at build time:
//
//	go build -ldflags "-X github.com/hrygo/mirrormatch/internal/version.Version=0.3.0"
var Version = "0.0.0-dev"

// Build metadata, set with -X like Version.
var (
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

// GetCurrentVersion returns the version reported for mode. Non-prod modes
// are marked as dev builds unless the version already carries a
// prerelease tag.
func GetCurrentVersion(mode string) string {
	if mode == "prod" || semver.Prerelease(canonical(Version)) != "" {
		return Version
	}
	return Version + "-dev"
}

// IsRelease reports whether v is a plain major.minor.patch version with no
// prerelease or build suffix. A leading "v" is optional.
func IsRelease(v string) bool {
	c := canonical(v)
	return semver.IsValid(c) &&
		semver.Prerelease(c) == "" &&
		semver.Build(c) == "" &&
		len(strings.Split(strings.TrimPrefix(v, "v"), ".")) == 3
}

func canonical(v string) string {
	return "v" + strings.TrimPrefix(v, "v")
}

// String returns the mode's version with the short commit appended when
// known.
func String(mode string) string {
	v := GetCurrentVersion(mode)
	if c := shortCommit(); c != "" {
		return fmt.Sprintf("%s (%s)", v, c)
	}
	return v
}

// Info is the build identity printed by the version command.
type Info struct {
	Version   string
	Commit    string
	Branch    string
	BuildTime string
	Release   bool
}

func GetInfo(mode string) Info {
	v := GetCurrentVersion(mode)
	return Info{
		Version:   v,
		Commit:    GitCommit,
		Branch:    GitBranch,
		BuildTime: BuildTime,
		Release:   IsRelease(v),
	}
}

func shortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 8 {
		return GitCommit[:8]
	}
	return GitCommit
}
