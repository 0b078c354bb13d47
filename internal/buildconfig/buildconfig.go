// Package buildconfig exposes build metadata injected at link time:
//
//	go build -ldflags "-X .../internal/buildconfig.version=v1.2.3"
package buildconfig

var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the release version, "dev" for local builds.
func Version() string { return version }

// Commit returns the VCS revision the binary was built from.
func Commit() string { return commit }

// Info returns the full build metadata for health and metrics payloads.
func Info() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
