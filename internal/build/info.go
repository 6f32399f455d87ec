package build

import "fmt"

// Name is the service name reported in telemetry resource attributes.
const Name = "mailroom"

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Name, Version, CommitSHA, BuildDate)
}
