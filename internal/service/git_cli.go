package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PushOptions controls a release push.
type PushOptions struct {
	Remote   string
	Branch   string
	Atomic   bool
	NoVerify bool
}

// GitCLI performs the mutating git operations of a release through the git
// binary so repository hooks and credential helpers apply.
type GitCLI interface {
	Add(ctx context.Context, paths []string) error
	Commit(ctx context.Context, message string, noVerify bool) error
	Tag(ctx context.Context, name, message string) error
	Push(ctx context.Context, opts PushOptions) error
}

type gitCLI struct {
	runner CommandRunner
	exec   ExecContext
}

// NewGitCLI creates a GitCLI running git in the execution context's directory.
func NewGitCLI(runner CommandRunner, ec ExecContext) GitCLI {
	return &gitCLI{runner: runner, exec: ec}
}

// Add stages paths in a single invocation. No paths is a no-op.
func (g *gitCLI) Add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	if err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to stage %s: %w", strings.Join(paths, ", "), err)
	}
	return nil
}

// Commit records staged changes.
func (g *gitCLI) Commit(ctx context.Context, message string, noVerify bool) error {
	args := []string{"commit", "-m", message}
	if noVerify {
		args = append(args, "--no-verify")
	}
	if err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create commit: %w", err)
	}
	return nil
}

// Tag creates an annotated tag on HEAD.
func (g *gitCLI) Tag(ctx context.Context, name, message string) error {
	if err := g.run(ctx, "tag", "-a", name, "-m", message); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	return nil
}

// Push pushes the branch together with its annotated tags.
func (g *gitCLI) Push(ctx context.Context, opts PushOptions) error {
	args := []string{"push", "--follow-tags"}
	if opts.NoVerify {
		args = append(args, "--no-verify")
	}
	if opts.Atomic {
		args = append(args, "--atomic")
	}
	args = append(args, opts.Remote, opts.Branch)
	return g.run(ctx, args...)
}

func (g *gitCLI) run(ctx context.Context, args ...string) error {
	_, err := g.runner.Run(ctx, g.exec, "git", args...)
	return err
}

// atomicUnsupported is printed by git when the remote lacks the atomic
// capability. "atomic push failed" means the remote rejected a ref instead.
const atomicUnsupported = "does not support --atomic push"

// IsAtomicUnsupported reports whether a push failed because the remote does
// not support atomic pushes.
func IsAtomicUnsupported(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return strings.Contains(strings.ToLower(cmdErr.Stderr), atomicUnsupported)
}
