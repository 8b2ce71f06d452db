package internal

import (
	"path/filepath"
	"regexp"

	"golang.org/x/mod/semver"
)

var (
	deviceVersionPattern  = regexp.MustCompile(`mt32-pi (v[0-9]+\.[0-9]+\.[0-9]+)`)
	releaseVersionPattern = regexp.MustCompile(`v[0-9]+\.[0-9]+\.[0-9]+`)
)

// DeviceVersion extracts the firmware version from the FTP welcome message
// of an mt32-pi, such as "Welcome to the mt32-pi v0.13.0 embedded FTP
// server!".
func DeviceVersion(welcome string) (string, bool) {
	match := deviceVersionPattern.FindStringSubmatch(welcome)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ReleaseVersionFromPath extracts a version from the name of an extracted
// release directory, such as "mt32-pi-v0.13.0".
func ReleaseVersionFromPath(dir string) (string, bool) {
	version := releaseVersionPattern.FindString(filepath.Base(filepath.Clean(dir)))
	if version == "" || !semver.IsValid(version) {
		return "", false
	}
	return version, true
}

// ValidVersion reports whether version is a "vMAJOR.MINOR.PATCH" version.
func ValidVersion(version string) bool {
	return semver.IsValid(version)
}

// UpToDate reports whether the installed version is at least the release.
func UpToDate(installed, release string) bool {
	return semver.Compare(installed, release) >= 0
}
