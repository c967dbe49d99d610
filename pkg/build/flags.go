// SPDX-License-Identifier: MIT
//
// Package build exposes the name, version, commit and build time stamped into
// the binary with linker flags:
//
//	go build -ldflags "-X audiomon/pkg/build.buildVersion=0.3.0 -X audiomon/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds run without them and report "dev".
package build

import (
	"errors"
	"fmt"
)

// Description is the one-line summary shown in CLI help.
const Description = "Real-time audio spectrum monitor streaming band levels over a Unix socket"

// Info is the build metadata of the running binary.
type Info struct {
	Name    string
	Version string
	Commit  string
	Time    string
}

// String renders Info for version output, e.g. "audiomon 0.3.0 (abc123, 2025-04-13)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	info         = Info{
		Name:    "audiomon",
		Version: "dev",
		Commit:  "unknown",
		Time:    "unknown",
	}
)

// Initialize copies every stamped value into the current Info. Values that were
// not stamped keep their development defaults and are reported together in
// the returned error, which callers may treat as a warning.
func Initialize() error {
	var errs []error
	set := func(dst *string, src, flag string) {
		if src == "" {
			errs = append(errs, fmt.Errorf("%s is not set", flag))
			return
		}
		*dst = src
	}
	set(&info.Name, buildName, "buildName")
	set(&info.Version, buildVersion, "buildVersion")
	set(&info.Commit, buildCommit, "buildCommit")
	set(&info.Time, buildTime, "buildTime")
	return errors.Join(errs...)
}

// Current returns the build information. Call Initialize first.
func Current() Info {
	return info
}
