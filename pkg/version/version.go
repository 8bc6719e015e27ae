// Package version derives sbpd's reported build identity from the metadata
// the Go toolchain embeds into every binary; no -ldflags are involved.
package version

import (
	"runtime/debug"
	"strings"
)

// AppName is the binary name used in version strings and startup logging.
const AppName = "sbpd"

// Build is the resolved build identity, computed once at package init.
var Build = resolve()

// Info describes how the running binary was produced.
type Info struct {
	// Version is the main module's version ("v0.3.1"), or "devel" for an
	// untagged or non-module build.
	Version string
	// Commit is the short VCS revision, suffixed with "-dirty" when the
	// working tree had local modifications at build time. Empty when the
	// binary was built outside a checkout (e.g. under `go test`).
	Commit string
}

func resolve() Info {
	out := Info{Version: "devel"}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		out.Version = v
	}

	var revision string
	var modified bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(revision) > 8 {
		revision = revision[:8]
	}
	if revision != "" && modified {
		revision += "-dirty"
	}
	out.Commit = revision
	return out
}

// Full returns the one-line identity logged at startup, e.g.
// "sbpd/v0.3.1 (a3f8c2d1)" or "sbpd/devel (a3f8c2d1-dirty)"; the commit is
// omitted when unknown.
func Full() string {
	var b strings.Builder
	b.WriteString(AppName)
	b.WriteByte('/')
	b.WriteString(Build.Version)
	if Build.Commit != "" {
		b.WriteString(" (")
		b.WriteString(Build.Commit)
		b.WriteByte(')')
	}
	return b.String()
}
