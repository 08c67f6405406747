package service

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
)

// CommitCollector reads raw commit messages scoped to project roots.
type CommitCollector struct {
	Git repository.GitRepository
}

// NewCommitCollector creates a CommitCollector.
func NewCommitCollector(git repository.GitRepository) *CommitCollector {
	return &CommitCollector{Git: git}
}

// Commits returns messages of commits touching projectRoot strictly after
// since, oldest first.
func (c *CommitCollector) Commits(ctx context.Context, projectRoot, since string) ([]string, error) {
	msgs, err := c.Git.CommitMessages(ctx, since, domain.CleanRoot(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("failed to collect commits for %s since %s: %w", projectRoot, since, err)
	}
	return msgs, nil
}

// FirstCommitRef returns the repository's earliest commit.
func (c *CommitCollector) FirstCommitRef(ctx context.Context) (string, error) {
	ref, err := c.Git.FirstCommit(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get first commit: %w", err)
	}
	return ref, nil
}
