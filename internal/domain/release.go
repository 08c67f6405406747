package domain

import "strings"

// DependencyUpdate records a dependency that contributed commits to a release.
type DependencyUpdate struct {
	Name    string
	Version string
}

// ReleaseCandidate is the outcome of version calculation. A nil candidate
// means no release is needed.
type ReleaseCandidate struct {
	Version           *Version
	PreviousVersion   *Version
	DependencyUpdates []DependencyUpdate
	// TagPrefix is the resolved prefix used to find PreviousVersion; the new
	// tag must use it too.
	TagPrefix string
	// Commits are the primary project's qualifying commit messages.
	Commits []string
	// Since is the git reference commits were collected from: the previous
	// tag, or the first commit when the project was never released.
	Since string
}

// Release holds all metadata related to a release.
type Release struct {
	ProjectName     string
	Version         *Version
	PreviousVersion *Version
	TagPrefix       string
	Notes           string
}

// TagName formats the release tag with the same prefix used for lookup.
func (r *Release) TagName() string {
	return FormatTag(r.TagPrefix, r.Version)
}

// PreviousTagName returns the tag of the previous release, empty if none.
func (r *Release) PreviousTagName() string {
	if r.PreviousVersion == nil || r.PreviousVersion.Raw() == InitialVersion {
		return ""
	}
	return FormatTag(r.TagPrefix, r.PreviousVersion)
}

// FormatTag renders a tag as "{prefix}{version}".
func FormatTag(prefix string, v *Version) string {
	return prefix + v.Raw()
}

// ResolveTagPrefix expands the project name placeholder of a tag prefix
// template. Both "${projectName}" and "{projectName}" are recognized.
func ResolveTagPrefix(template, projectName string) string {
	replacer := strings.NewReplacer("${projectName}", projectName, "{projectName}", projectName)
	return replacer.Replace(template)
}
