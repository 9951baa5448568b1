package version

import (
	"fmt"
	"runtime"
)

// Version information - using semantic versioning
const (
	Major      = 0
	Minor      = 3
	Patch      = 0
	PreRelease = "" // e.g., "alpha", "beta", "rc1"

	AppName = "AdForge Agent"
)

var GitCommit = ""

// Version returns the semantic version string
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		v += "-" + PreRelease
	}
	return v
}

// GetVersionString returns a formatted version string
func GetVersionString() string {
	if GitCommit != "" && len(GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", Version(), GitCommit[:7])
	}
	return Version()
}

// GetFullVersionString returns a complete version string with build info
func GetFullVersionString() string {
	return fmt.Sprintf("%s v%s (go: %s, platform: %s/%s)",
		AppName, GetVersionString(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
