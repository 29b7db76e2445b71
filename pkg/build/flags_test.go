// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"runtime/debug"
	"strings"
	"testing"
)

var origFlags ldFlags

func TestMain(m *testing.M) {
	origFlags = *buildFlags
	os.Exit(m.Run())
}

// setup resets the package state for one test and restores it afterwards.
func setup(t *testing.T, name, time, commit, version string, info *debug.BuildInfo) {
	t.Helper()
	saved := *buildFlags
	savedRead := readBuildInfo
	savedVars := [4]string{buildName, buildTime, buildCommit, buildVersion}
	t.Cleanup(func() {
		*buildFlags = saved
		readBuildInfo = savedRead
		buildName, buildTime, buildCommit, buildVersion = savedVars[0], savedVars[1], savedVars[2], savedVars[3]
	})

	*buildFlags = origFlags
	buildName, buildTime, buildCommit, buildVersion = name, time, commit, version
	readBuildInfo = func() (*debug.BuildInfo, bool) { return info, info != nil }
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrs    []string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", []string{"BuildName is required"}},
		{"Missing BuildTime", "pluck", "", "abcdef123", "v1.0.0", []string{"BuildTime is required"}},
		{"Missing BuildCommit", "pluck", "2025-04-13", "", "v1.0.0", []string{"BuildCommit is required"}},
		{"Missing BuildVersion", "pluck", "2025-04-13", "abcdef123", "", []string{"BuildVersion is required"}},
		{"Missing All", "", "", "", "", []string{"BuildName", "BuildTime", "BuildCommit", "BuildVersion"}},
		{"Success Case", "pluck", "2025-04-13", "abcdef123", "v1.0.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, tt.buildName, tt.buildTime, tt.buildCommit, tt.buildVer, nil)

			err := Initialize()

			if len(tt.wantErrs) == 0 {
				if err != nil {
					t.Fatalf("Initialize() unexpected error: %v", err)
				}
				want := ldFlags{Name: "pluck", Description: Description, Time: "2025-04-13", Commit: "abcdef123", Version: "v1.0.0"}
				if *buildFlags != want {
					t.Errorf("buildFlags = %+v, want %+v", *buildFlags, want)
				}
				return
			}

			if err == nil {
				t.Fatal("Initialize() expected error, got nil")
			}
			for _, msg := range tt.wantErrs {
				if !strings.Contains(err.Error(), msg) {
					t.Errorf("Initialize() error = %q, want it to mention %q", err, msg)
				}
			}
			// Provided values are applied even when others are missing.
			if tt.buildName != "" && buildFlags.Name != tt.buildName {
				t.Errorf("buildFlags.Name = %q, want %q", buildFlags.Name, tt.buildName)
			}
			if tt.buildVer == "" && buildFlags.Version != origFlags.Version {
				t.Errorf("buildFlags.Version = %q, want default %q", buildFlags.Version, origFlags.Version)
			}
		})
	}
}

func TestInitializeVCSFallback(t *testing.T) {
	setup(t, "pluck", "", "", "", &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2025-05-01T10:00:00Z"},
		},
	})

	if err := Initialize(); err == nil {
		t.Error("Initialize() error = nil, want the missing ldflags reported")
	}
	if buildFlags.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want the short VCS revision", buildFlags.Commit)
	}
	if buildFlags.Time != "2025-05-01T10:00:00Z" || buildFlags.Version != "v0.3.1" {
		t.Errorf("buildFlags = %+v, want VCS time and module version", *buildFlags)
	}
}

func TestInitializeDevelModule(t *testing.T) {
	setup(t, "", "", "", "", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	_ = Initialize()
	if buildFlags.Version != "dev" || buildFlags.Commit != "unknown" {
		t.Errorf("buildFlags = %+v, want development defaults", *buildFlags)
	}
}

func TestDevelopmentDefaults(t *testing.T) {
	if origFlags.Name == "" || origFlags.Description == "" {
		t.Errorf("default build flags = %+v, want a name and description without ldflags", origFlags)
	}
}

func TestBuildFlagsString(t *testing.T) {
	f := &ldFlags{Version: "v1.2.3", Commit: "abc", Time: "2025-04-13"}
	if got, want := f.String(), "v1.2.3 (commit abc, built 2025-04-13)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGetBuildFlags(t *testing.T) {
	if GetBuildFlags() != buildFlags {
		t.Error("GetBuildFlags() does not return the package build information")
	}
}
