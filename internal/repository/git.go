package repository

import "context"

// GitRepository defines the read-only Git operations used to resolve versions.
// Mutations (stage, commit, tag, push) go through the git CLI so hooks and
// transport options behave exactly like a developer's shell.
type GitRepository interface {
	ListTags(ctx context.Context) ([]string, error)
	TagExists(ctx context.Context, tag string) (bool, error)
	// CommitMessages returns the messages of commits reachable from HEAD but
	// not from since, touching path, oldest first. A path of "." matches
	// every commit.
	CommitMessages(ctx context.Context, since, path string) ([]string, error)
	FirstCommit(ctx context.Context) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
}
