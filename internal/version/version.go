// Package version exposes build metadata injected at link time:
//
//	go build -ldflags "-X github.com/HerbHall/aciclean/internal/version.Version=v0.3.0 \
//	  -X github.com/HerbHall/aciclean/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short returns the bare version string.
func Short() string {
	if Version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return Version
}

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("aciclean %s (commit %s, built %s, %s %s/%s)",
		Short(), Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent on every controller request.
func UserAgent() string {
	return "aciclean/" + Short()
}
