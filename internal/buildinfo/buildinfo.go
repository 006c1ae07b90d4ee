// Package buildinfo holds version information injected at build time via
// ldflags, e.g. -X github.com/tether-io/tether/internal/buildinfo.Version=v0.3.0.
package buildinfo

import "runtime"

var (
	Version    = "dev"
	Codename   = "unknown"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Field is one labelled line of version output.
type Field struct {
	Label string
	Value string
}

// Fields lists the build details shown after the version line.
func Fields() []Field {
	return []Field{
		{"Commit", CommitHash},
		{"Built", BuildDate},
		{"OS/Arch", runtime.GOOS + "/" + runtime.GOARCH},
		{"Go", runtime.Version()},
	}
}
