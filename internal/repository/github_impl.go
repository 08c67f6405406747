package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/compozy/monorelease/internal/config"
	"github.com/google/go-github/v74/github"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
)

const (
	githubMaxRetries   = 3
	githubRetryBackoff = 500 * time.Millisecond
)

// githubRepository is the implementation of the GithubRepository interface.
type githubRepository struct {
	client  *github.Client
	owner   string
	repo    string
	backoff func() retry.Backoff
}

// NewGithubRepository creates a new GithubRepository with validation.
func NewGithubRepository(token, owner, repo string) (GithubRepository, error) {
	if err := config.ValidateGitHubToken(token); err != nil {
		return nil, fmt.Errorf("invalid GitHub token: %w", err)
	}
	if err := config.ValidateGitHubOwnerRepo(owner, repo); err != nil {
		return nil, fmt.Errorf("invalid repository configuration: %w", err)
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: strings.TrimSpace(token)},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	return newGithubRepository(github.NewClient(tc), owner, repo), nil
}

func newGithubRepository(client *github.Client, owner, repo string) *githubRepository {
	return &githubRepository{
		client: client,
		owner:  owner,
		repo:   repo,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(githubMaxRetries, retry.NewExponential(githubRetryBackoff))
		},
	}
}

// CreateRelease creates a release, retrying transient API failures.
func (r *githubRepository) CreateRelease(ctx context.Context, req ReleaseRequest) (string, error) {
	release := &github.RepositoryRelease{
		TagName:    github.Ptr(req.Tag),
		Name:       github.Ptr(req.Name),
		Body:       github.Ptr(req.Body),
		Prerelease: github.Ptr(req.Prerelease),
		Draft:      github.Ptr(req.Draft),
	}
	if req.TargetCommitish != "" {
		release.TargetCommitish = github.Ptr(req.TargetCommitish)
	}
	var created *github.RepositoryRelease
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		var resp *github.Response
		var err error
		created, resp, err = r.client.Repositories.CreateRelease(ctx, r.owner, r.repo, release)
		return classifyGithubError(resp, err)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create release %s: %w", req.Tag, err)
	}
	return created.GetHTMLURL(), nil
}

// MarkLatest sets make_latest on the release of tag.
func (r *githubRepository) MarkLatest(ctx context.Context, tag string) error {
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		release, resp, err := r.client.Repositories.GetReleaseByTag(ctx, r.owner, r.repo, tag)
		if err := classifyGithubError(resp, err); err != nil {
			return err
		}
		_, resp, err = r.client.Repositories.EditRelease(ctx, r.owner, r.repo, release.GetID(),
			&github.RepositoryRelease{MakeLatest: github.Ptr("true")})
		return classifyGithubError(resp, err)
	})
	if err != nil {
		return fmt.Errorf("failed to mark release %s as latest: %w", tag, err)
	}
	return nil
}

// classifyGithubError marks rate limits and server errors as retryable.
func classifyGithubError(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return retry.RetryableError(err)
	}
	if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
		return retry.RetryableError(err)
	}
	return err
}
