package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// gitRepository is the go-git implementation of GitRepository.
type gitRepository struct {
	repo *git.Repository
}

// NewGitRepository opens the repository containing dir.
func NewGitRepository(dir string) (GitRepository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	return &gitRepository{repo: repo}, nil
}

// ListTags returns the short names of every tag.
func (r *gitRepository) ListTags(ctx context.Context) ([]string, error) {
	tagRefs, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	var tags []string
	if err := tagRefs.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tags = append(tags, ref.Name().Short())
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

// TagExists checks if a tag exists.
func (r *gitRepository) TagExists(_ context.Context, tag string) (bool, error) {
	_, err := r.repo.Tag(tag)
	if errors.Is(err, git.ErrTagNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	return true, nil
}

// CommitMessages walks HEAD's history and keeps the commits that are not
// ancestors of since (since itself included) and that touch path.
func (r *gitRepository) CommitMessages(ctx context.Context, since, path string) ([]string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	excluded := map[plumbing.Hash]struct{}{}
	if since != "" {
		sinceHash, err := r.resolveRef(since)
		if err != nil {
			return nil, err
		}
		if excluded, err = r.ancestors(ctx, sinceHash); err != nil {
			return nil, err
		}
	}
	opts := &git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime}
	if root := domain.CleanRoot(path); root != domain.WorkspaceRoot {
		opts.PathFilter = func(p string) bool {
			return p == root || strings.HasPrefix(p, root+"/")
		}
	}
	commits, err := r.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get commits: %w", err)
	}
	var messages []string
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, skip := excluded[c.Hash]; skip {
			return nil
		}
		messages = append(messages, strings.TrimRight(c.Message, "\n"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

// FirstCommit returns the hash of the oldest parentless commit reachable
// from HEAD.
func (r *gitRepository) FirstCommit(ctx context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	commits, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return "", fmt.Errorf("failed to get commits: %w", err)
	}
	var first *object.Commit
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.NumParents() == 0 && (first == nil || c.Committer.When.Before(first.Committer.When)) {
			first = c
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to iterate commits: %w", err)
	}
	if first == nil {
		return "", fmt.Errorf("repository has no root commit")
	}
	return first.Hash.String(), nil
}

// CurrentBranch returns the name of the current branch.
func (r *gitRepository) CurrentBranch(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash())
	}
	return head.Name().Short(), nil
}

// resolveRef resolves a tag name or any revision to a commit hash.
func (r *gitRepository) resolveRef(ref string) (plumbing.Hash, error) {
	if tagRef, err := r.repo.Tag(ref); err == nil {
		return r.resolveTagCommit(tagRef)
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve revision %s: %w", ref, err)
	}
	return *hash, nil
}

// resolveTagCommit resolves a lightweight or annotated tag to its commit.
func (r *gitRepository) resolveTagCommit(tagRef *plumbing.Reference) (plumbing.Hash, error) {
	if commit, err := r.repo.CommitObject(tagRef.Hash()); err == nil {
		return commit.Hash, nil
	}
	if tagObj, err := r.repo.TagObject(tagRef.Hash()); err == nil {
		if commit, err := tagObj.Commit(); err == nil {
			return commit.Hash, nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("failed to resolve commit for tag %s", tagRef.Name().Short())
}

func (r *gitRepository) ancestors(ctx context.Context, from plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	commits, err := r.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history of %s: %w", from, err)
	}
	seen := map[plumbing.Hash]struct{}{}
	err = commits.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}
	return seen, nil
}
