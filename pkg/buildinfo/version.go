// Package buildinfo holds the version stamped into glucifer builds.
//
//	go build -ldflags "-X github.com/chronictectonic/underworld2/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/chronictectonic/underworld2/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/chronictectonic/underworld2/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

// Set via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the build identity as reported by the HTTP API.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Current returns the stamped build identity.
func Current() Info { return Info{Version: Version, Commit: Commit, Date: Date} }

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
