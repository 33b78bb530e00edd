// Package agentstep provides the version information for agentstep.
package agentstep

// Version is the current version of agentstep.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
