// Package summarizer provides version information and metadata for the
// digestrelay summarizer library.
//
// This package exports version constants for runtime version detection,
// enabling applications to access library version information for logging
// and compatibility checks.
package summarizer

// Version represents the current semantic version of the summarizer library.
//
// The constant follows semantic versioning format (MAJOR.MINOR.PATCH) and is
// updated with each release. A 0.x version indicates pre-1.0 development with
// potential breaking changes between minor versions.
const Version = "0.3.0"

// VersionInfo encapsulates version metadata for the summarizer library.
type VersionInfo struct {
	// Version contains the semantic version string following semver format
	Version string

	// Name contains the canonical library name for identification purposes
	Name string
}

// GetVersion returns structured version information for the library.
//
// Usage:
//
//	info := summarizer.GetVersion()
//	log.Printf("Using %s version %s", info.Name, info.Version)
func GetVersion() VersionInfo {
	return VersionInfo{
		Version: Version,
		Name:    "summarizer",
	}
}
