// Package version holds the build version of refgate.
package version

// Build information. Populated at build-time.
var (
	// Version is the build version.
	Version = ""

	// CommitSHA is the build commit sha.
	CommitSHA = ""
)
