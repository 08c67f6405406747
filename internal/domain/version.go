package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// InitialVersion is the sentinel used when a project has never been released.
const InitialVersion = "0.0.0"

// ReleaseType identifies how a version is incremented.
type ReleaseType string

const (
	ReleaseTypeMajor      ReleaseType = "major"
	ReleaseTypeMinor      ReleaseType = "minor"
	ReleaseTypePatch      ReleaseType = "patch"
	ReleaseTypePremajor   ReleaseType = "premajor"
	ReleaseTypePreminor   ReleaseType = "preminor"
	ReleaseTypePrepatch   ReleaseType = "prepatch"
	ReleaseTypePrerelease ReleaseType = "prerelease"
)

// ParseReleaseType normalizes user input. Hyphenated aliases such as
// "pre-major" are accepted.
func ParseReleaseType(s string) (ReleaseType, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	switch rt := ReleaseType(normalized); rt {
	case ReleaseTypeMajor, ReleaseTypeMinor, ReleaseTypePatch,
		ReleaseTypePremajor, ReleaseTypePreminor, ReleaseTypePrepatch, ReleaseTypePrerelease:
		return rt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReleaseType, s)
}

// IsPrereleaseFamily reports whether the bump produces a prerelease version.
func (rt ReleaseType) IsPrereleaseFamily() bool {
	switch rt {
	case ReleaseTypePremajor, ReleaseTypePreminor, ReleaseTypePrepatch, ReleaseTypePrerelease:
		return true
	}
	return false
}

// rank orders release-family bumps by impact.
func (rt ReleaseType) rank() int {
	switch rt {
	case ReleaseTypeMajor:
		return 3
	case ReleaseTypeMinor:
		return 2
	case ReleaseTypePatch:
		return 1
	}
	return 0
}

// HigherImpact returns whichever of the two release-family bumps has more impact.
func HigherImpact(a, b ReleaseType) ReleaseType {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Version wraps semver.Version for additional methods.
type Version struct {
	*semver.Version
}

// NewVersion creates a new Version from a string.
func NewVersion(s string) (*Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, err
	}
	return &Version{v}, nil
}

// NewStrictVersion parses s without coercion. Tags such as "1.2" or "v1" are
// rejected so only full MAJOR.MINOR.PATCH versions count as releases.
func NewStrictVersion(s string) (*Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, err
	}
	return &Version{v}, nil
}

// BumpMajor increments the major version.
func (v *Version) BumpMajor() *Version {
	newVer := v.IncMajor()
	return &Version{&newVer}
}

// BumpMinor increments the minor version.
func (v *Version) BumpMinor() *Version {
	newVer := v.IncMinor()
	return &Version{&newVer}
}

// BumpPatch increments the patch version.
func (v *Version) BumpPatch() *Version {
	newVer := v.IncPatch()
	return &Version{&newVer}
}

// Bump applies a release type using the increment rules of npm's semver:
// release-family bumps graduate a prerelease to the stable version implied by
// its base components, pre* bumps append "-{preid}.0", and prerelease
// increments the trailing numeric identifier.
func (v *Version) Bump(rt ReleaseType, preid string) (*Version, error) {
	major, minor, patch := v.Major(), v.Minor(), v.Patch()
	pre := v.Prerelease()
	switch rt {
	case ReleaseTypeMajor:
		if pre == "" || minor != 0 || patch != 0 {
			major++
		}
		return newVersion(major, 0, 0, ""), nil
	case ReleaseTypeMinor:
		if pre == "" || patch != 0 {
			minor++
		}
		return newVersion(major, minor, 0, ""), nil
	case ReleaseTypePatch:
		if pre == "" {
			patch++
		}
		return newVersion(major, minor, patch, ""), nil
	case ReleaseTypePremajor:
		return newVersion(major+1, 0, 0, startPrerelease(preid)), nil
	case ReleaseTypePreminor:
		return newVersion(major, minor+1, 0, startPrerelease(preid)), nil
	case ReleaseTypePrepatch:
		return newVersion(major, minor, patch+1, startPrerelease(preid)), nil
	case ReleaseTypePrerelease:
		if pre == "" {
			return newVersion(major, minor, patch+1, startPrerelease(preid)), nil
		}
		return newVersion(major, minor, patch, incrementPrerelease(pre, preid)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidReleaseType, rt)
}

// IsPrerelease reports whether v carries a prerelease component.
func (v *Version) IsPrerelease() bool {
	return v.Prerelease() != ""
}

// PrereleaseID returns the first dot-separated prerelease identifier.
func (v *Version) PrereleaseID() string {
	id, _, _ := strings.Cut(v.Prerelease(), ".")
	return id
}

// Compare compares two versions.
func (v *Version) Compare(other *Version) int {
	return v.Version.Compare(other.Version)
}

// GreaterThan reports whether v has higher precedence than other.
func (v *Version) GreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// Raw returns the version without any prefix, e.g. "1.2.3-beta.0".
func (v *Version) Raw() string {
	return v.Version.String()
}

// String returns the version string with v prefix.
func (v *Version) String() string {
	return "v" + v.Version.String()
}

func newVersion(major, minor, patch uint64, pre string) *Version {
	return &Version{semver.New(major, minor, patch, pre, "")}
}

func startPrerelease(preid string) string {
	if preid == "" {
		return "0"
	}
	return preid + ".0"
}

func incrementPrerelease(current, preid string) string {
	parts := strings.Split(current, ".")
	if preid != "" && parts[0] != preid {
		return preid + ".0"
	}
	for i := len(parts) - 1; i >= 0; i-- {
		if n, err := strconv.ParseUint(parts[i], 10, 64); err == nil {
			parts[i] = strconv.FormatUint(n+1, 10)
			return strings.Join(parts, ".")
		}
	}
	return current + ".0"
}
