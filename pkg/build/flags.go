// SPDX-License-Identifier: MIT
//
// Package build carries the name, version, commit and build time embedded
// with linker flags. Builds without ldflags (go run, go install) fall back
// to the VCS stamp the toolchain records in the binary, then to "unknown".
package build

import (
	"errors"
	"fmt"
	"runtime/debug"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Description is shown in the command help.
const Description = "Karplus-Strong plucked string keyboard"

// Populated by -ldflags during compilation, for example:
//
//	go build -ldflags "-X pluck/pkg/build.buildName=pluck -X pluck/pkg/build.buildVersion=0.1.0 ..."
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "pluck",
		Description: Description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the ldflags variables into the build information. Every
// missing variable is reported in the returned error; its field is then
// filled from the embedded VCS stamp when there is one, and otherwise keeps
// its default.
func Initialize() error {
	var errs []error
	take := func(dst *string, val, name, fallback string) {
		switch {
		case val != "":
			*dst = val
		case fallback != "":
			*dst = fallback
			errs = append(errs, fmt.Errorf("%s is required", name))
		default:
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	stamp := vcsStamp()
	take(&buildFlags.Name, buildName, "BuildName", "")
	take(&buildFlags.Time, buildTime, "BuildTime", stamp.time)
	take(&buildFlags.Commit, buildCommit, "BuildCommit", stamp.revision)
	take(&buildFlags.Version, buildVersion, "BuildVersion", stamp.version)

	return errors.Join(errs...)
}

type vcsInfo struct {
	version  string
	revision string
	time     string
}

// vcsStamp reads the module version and vcs.* settings recorded by the
// toolchain. Fields are empty when the binary carries none.
func vcsStamp() vcsInfo {
	var v vcsInfo
	info, ok := readBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		v.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
			if len(v.revision) > 12 {
				v.revision = v.revision[:12]
			}
		case "vcs.time":
			v.time = s.Value
		}
	}
	return v
}

// String renders the version line printed by --version.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
