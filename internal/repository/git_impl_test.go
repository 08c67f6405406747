package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	when time.Time
}

func setupTestRepo(t *testing.T) *testRepo {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	tr := &testRepo{t: t, dir: dir, repo: repo, when: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr.commit("chore: initial commit", "README.md")
	return tr
}

// commit writes a unique line to every file and commits them with a
// strictly increasing timestamp so history order is deterministic.
func (tr *testRepo) commit(message string, files ...string) plumbing.Hash {
	tr.t.Helper()
	wt, err := tr.repo.Worktree()
	require.NoError(tr.t, err)
	for _, f := range files {
		full := filepath.Join(tr.dir, f)
		require.NoError(tr.t, os.MkdirAll(filepath.Dir(full), 0o755))
		fh, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		require.NoError(tr.t, err)
		_, err = fh.WriteString(message + "\n")
		require.NoError(tr.t, err)
		require.NoError(tr.t, fh.Close())
		_, err = wt.Add(f)
		require.NoError(tr.t, err)
	}
	tr.when = tr.when.Add(time.Minute)
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: tr.when},
	})
	require.NoError(tr.t, err)
	return hash
}

func (tr *testRepo) tag(name string, annotated bool) {
	tr.t.Helper()
	head, err := tr.repo.Head()
	require.NoError(tr.t, err)
	var opts *git.CreateTagOptions
	if annotated {
		opts = &git.CreateTagOptions{
			Message: "Release " + name,
			Tagger:  &object.Signature{Name: "Test User", Email: "test@example.com", When: tr.when},
		}
	}
	_, err = tr.repo.CreateTag(name, head.Hash(), opts)
	require.NoError(tr.t, err)
}

func TestNewGitRepository(t *testing.T) {
	t.Run("Should open repository from a nested directory", func(t *testing.T) {
		tr := setupTestRepo(t)
		nested := filepath.Join(tr.dir, "packages", "a")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		gitRepo, err := NewGitRepository(nested)
		assert.NoError(t, err)
		assert.NotNil(t, gitRepo)
	})
	t.Run("Should return error for non-git directory", func(t *testing.T) {
		gitRepo, err := NewGitRepository(t.TempDir())
		assert.Error(t, err)
		assert.Nil(t, gitRepo)
	})
}

func TestGitRepository_ListTags(t *testing.T) {
	t.Run("Should list lightweight and annotated tags", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.tag("a-1.0.0", false)
		tr.commit("feat: more", "a/file.txt")
		tr.tag("a-1.1.0", true)
		gitRepo := &gitRepository{repo: tr.repo}
		tags, err := gitRepo.ListTags(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a-1.0.0", "a-1.1.0"}, tags)
	})
	t.Run("Should return empty list when no tags exist", func(t *testing.T) {
		tr := setupTestRepo(t)
		gitRepo := &gitRepository{repo: tr.repo}
		tags, err := gitRepo.ListTags(context.Background())
		require.NoError(t, err)
		assert.Empty(t, tags)
	})
}

func TestGitRepository_TagExists(t *testing.T) {
	t.Run("Should report existing and missing tags", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.tag("v1.0.0", false)
		gitRepo := &gitRepository{repo: tr.repo}
		exists, err := gitRepo.TagExists(context.Background(), "v1.0.0")
		assert.NoError(t, err)
		assert.True(t, exists)
		exists, err = gitRepo.TagExists(context.Background(), "v9.9.9")
		assert.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestGitRepository_CommitMessages(t *testing.T) {
	t.Run("Should return commits after an annotated tag oldest first", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.commit("feat(a): before tag", "packages/a/index.ts")
		tr.tag("a-1.0.0", true)
		tr.commit("feat(a): first", "packages/a/index.ts")
		tr.commit("fix(a): second", "packages/a/index.ts")
		gitRepo := &gitRepository{repo: tr.repo}
		msgs, err := gitRepo.CommitMessages(context.Background(), "a-1.0.0", "packages/a")
		require.NoError(t, err)
		assert.Equal(t, []string{"feat(a): first", "fix(a): second"}, msgs)
	})
	t.Run("Should scope commits to the project path", func(t *testing.T) {
		tr := setupTestRepo(t)
		tr.tag("v1.0.0", false)
		tr.commit("feat(a): touches a", "packages/a/index.ts")
		tr.commit("fix(b): touches b", "packages/b/index.ts")
		tr.commit("feat(ab): touches a-b", "packages/a-b/index.ts")
		gitRepo := &gitRepository{repo: tr.repo}
		msgs, err := gitRepo.CommitMessages(context.Background(), "v1.0.0", "packages/a")
		require.NoError(t, err)
		assert.Equal(t, []string{"feat(a): touches a"}, msgs)
		all, err := gitRepo.CommitMessages(context.Background(), "v1.0.0", ".")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
	t.Run("Should exclude the since commit itself", func(t *testing.T) {
		tr := setupTestRepo(t)
		gitRepo := &gitRepository{repo: tr.repo}
		first, err := gitRepo.FirstCommit(context.Background())
		require.NoError(t, err)
		msgs, err := gitRepo.CommitMessages(context.Background(), first, ".")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
	t.Run("Should fail for unknown references", func(t *testing.T) {
		tr := setupTestRepo(t)
		gitRepo := &gitRepository{repo: tr.repo}
		_, err := gitRepo.CommitMessages(context.Background(), "does-not-exist", ".")
		assert.ErrorContains(t, err, "failed to resolve revision")
	})
}

func TestGitRepository_FirstCommit(t *testing.T) {
	t.Run("Should return the root commit", func(t *testing.T) {
		tr := setupTestRepo(t)
		head, err := tr.repo.Head()
		require.NoError(t, err)
		root := head.Hash().String()
		tr.commit("feat: second", "b.txt")
		gitRepo := &gitRepository{repo: tr.repo}
		first, err := gitRepo.FirstCommit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, root, first)
	})
}

func TestGitRepository_CurrentBranch(t *testing.T) {
	t.Run("Should report the checked out branch", func(t *testing.T) {
		tr := setupTestRepo(t)
		gitRepo := &gitRepository{repo: tr.repo}
		branch, err := gitRepo.CurrentBranch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "master", branch)
	})
}
