// Package version reports which deadlinejob build is running. The values are
// injected by the release build and show up in `deadlinejob version`, the
// daemon's start-up log, the HTTP health check and the User-Agent sent to the
// Deadline Web Service.
//
//	go build -ldflags "-X github.com/jmylchreest/go-deadlinejob/internal/version.Version=1.4.0 \
//	  -X github.com/jmylchreest/go-deadlinejob/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, "dev" for local builds
	Version = "dev"

	// Commit is the short git SHA the binary was built from
	Commit = "unknown"

	// BuildDate is the UTC build time, RFC3339
	BuildDate = "unknown"
)

// Info is the build description printed by `deadlinejob version --json`
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get collects the build variables and the runtime they run on
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the bare version, as reported by /health
func String() string {
	return Version
}

// UserAgent is sent to the Deadline Web Service
func UserAgent() string {
	return "go-deadlinejob/" + Version
}
