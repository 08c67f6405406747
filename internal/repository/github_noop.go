package repository

import (
	"context"
	"errors"
	"fmt"
)

var ErrGithubTokenRequired = errors.New("github token is required for GitHub operations")

type githubNoopRepository struct {
	owner string
	repo  string
}

// NewGithubNoopRepository returns a GithubRepository that fails every call.
// It stands in when no token is configured so releases that never touch
// GitHub keep working.
func NewGithubNoopRepository(owner, repo string) GithubRepository {
	return &githubNoopRepository{owner: owner, repo: repo}
}

func (r *githubNoopRepository) CreateRelease(_ context.Context, req ReleaseRequest) (string, error) {
	return "", r.operationError("create release " + req.Tag)
}

func (r *githubNoopRepository) MarkLatest(_ context.Context, tag string) error {
	return r.operationError("mark release " + tag + " as latest")
}

func (r *githubNoopRepository) operationError(action string) error {
	return fmt.Errorf("%w: unable to %s for %s/%s", ErrGithubTokenRequired, action, r.owner, r.repo)
}
