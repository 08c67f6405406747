package repository

import "context"

// ReleaseRequest describes a GitHub release to create.
type ReleaseRequest struct {
	Tag             string
	Name            string
	Body            string
	TargetCommitish string
	Prerelease      bool
	Draft           bool
}

// GithubRepository defines the interface for GitHub API operations.
type GithubRepository interface {
	// CreateRelease creates a release and returns its HTML URL.
	CreateRelease(ctx context.Context, req ReleaseRequest) (string, error)
	// MarkLatest flags the release of tag as the repository's latest release.
	MarkLatest(ctx context.Context, tag string) error
}
