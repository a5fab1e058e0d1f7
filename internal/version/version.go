// Package version reports the build version shown by --version.
package version

import (
	"runtime/debug"
	"strings"

	"golang.org/x/mod/module"
)

const devel = "(devel)"

// String returns the module version for tagged builds, and "(devel)" plus
// the short VCS revision otherwise.
func String() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return devel
	}
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) string {
	v := info.Main.Version
	if v != "" && v != devel && !strings.Contains(v, "+dirty") && !module.IsPseudoVersion(v) {
		return v
	}

	rev := setting(info, "vcs.revision")
	if rev == "" {
		return devel
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if setting(info, "vcs.modified") == "true" {
		rev += "-dirty"
	}
	return "(devel " + rev + ")"
}

func setting(info *debug.BuildInfo, key string) string {
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
