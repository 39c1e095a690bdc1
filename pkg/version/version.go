// Package version increments release versions following the npm semver rules
// used for Graph releases.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Initial is the version of the first release of a Graph.
const Initial = "0.0.0-0"

// ErrInvalidReleaseType indicates an unsupported increment.
var ErrInvalidReleaseType = errors.New("invalid release type")

// ReleaseType selects which part of a version Inc bumps.
type ReleaseType string

const (
	Major      ReleaseType = "major"
	Minor      ReleaseType = "minor"
	Patch      ReleaseType = "patch"
	PreMajor   ReleaseType = "premajor"
	PreMinor   ReleaseType = "preminor"
	PrePatch   ReleaseType = "prepatch"
	PreRelease ReleaseType = "prerelease"
)

// ParseReleaseType returns the release type named s.
func ParseReleaseType(s string) (ReleaseType, bool) {
	switch t := ReleaseType(s); t {
	case Major, Minor, Patch, PreMajor, PreMinor, PrePatch, PreRelease:
		return t, true
	default:
		return "", false
	}
}

// Valid reports whether v is a strict semantic version.
func Valid(v string) bool {
	_, err := semver.StrictNewVersion(v)

	return err == nil
}

// Inc returns v incremented by releaseType. Build metadata is dropped.
//
//	Inc("1.0.0-0", Patch)      == "1.0.0"
//	Inc("1.0.0", PreMajor)     == "2.0.0-0"
//	Inc("1.0.0-rc.1", PreRelease) == "1.0.0-rc.2"
func Inc(v string, releaseType ReleaseType) (string, error) {
	current, err := semver.StrictNewVersion(v)
	if err != nil {
		return "", fmt.Errorf("parsing version %q: %w", v, err)
	}

	major, minor, patch := current.Major(), current.Minor(), current.Patch()
	pre := current.Prerelease()

	switch releaseType {
	case Major:
		if minor != 0 || patch != 0 || pre == "" {
			major++
		}

		minor, patch, pre = 0, 0, ""
	case Minor:
		if patch != 0 || pre == "" {
			minor++
		}

		patch, pre = 0, ""
	case Patch:
		if pre == "" {
			patch++
		}

		pre = ""
	case PreMajor:
		major, minor, patch, pre = major+1, 0, 0, "0"
	case PreMinor:
		minor, patch, pre = minor+1, 0, "0"
	case PrePatch:
		patch, pre = patch+1, "0"
	case PreRelease:
		if pre == "" {
			patch, pre = patch+1, "0"
		} else {
			pre = bumpPrerelease(pre)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidReleaseType, releaseType)
	}

	return semver.New(major, minor, patch, pre, "").String(), nil
}

// bumpPrerelease increments the last numeric identifier, or appends 0 when
// there is none.
func bumpPrerelease(pre string) string {
	parts := strings.Split(pre, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			continue
		}

		parts[i] = strconv.FormatUint(n+1, 10)

		return strings.Join(parts, ".")
	}

	return strings.Join(append(parts, "0"), ".")
}
