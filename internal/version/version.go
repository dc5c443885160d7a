package version

import "strings"

const versionPrefix = "v"

// Version is set at build time from the release tag.
var Version = "development"

// GetFormattedVersion returns the current version with the 'v' prefix removed.
func GetFormattedVersion() string {
	return strings.TrimPrefix(Version, versionPrefix)
}
