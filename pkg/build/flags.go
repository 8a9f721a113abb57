// SPDX-License-Identifier: MIT
//
// Package build exposes metadata stamped into the binary at link time:
//
//	go build -ldflags "-X visualizer/pkg/build.buildName=visualizer \
//	  -X visualizer/pkg/build.buildVersion=1.2.0 \
//	  -X visualizer/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X visualizer/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// An unstamped binary is a development build and reports "dev".
package build

import (
	"errors"
	"fmt"
)

const (
	DefaultName = "visualizer"
	Description = "Audio spectrum visualizer for addressable LED strips"
)

// Info is the build metadata of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = devInfo()
)

func devInfo() Info {
	return Info{
		Name:    DefaultName,
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
}

// Initialize copies the link-time values into Info. A binary stamped with
// only some of the values is rejected.
func Initialize() error {
	stamped := []struct{ flag, value string }{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	}

	var missing []error
	set := 0
	for _, s := range stamped {
		if s.value == "" {
			missing = append(missing, fmt.Errorf("%s is required", s.flag))
			continue
		}
		set++
	}

	buildInfo = devInfo()
	switch set {
	case 0:
		return nil
	case len(stamped):
		buildInfo = Info{Name: buildName, Time: buildTime, Commit: buildCommit, Version: buildVersion}
		return nil
	}
	return errors.Join(missing...)
}

// Get returns the build information. Call Initialize first.
func Get() Info {
	return buildInfo
}
