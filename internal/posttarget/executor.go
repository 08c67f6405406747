package posttarget

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
)

// Built-in executor names.
const (
	ShellExecutor         = "shell"
	NpmPublishExecutor    = "npm-publish"
	GithubReleaseExecutor = "github-release"
	GoReleaserExecutor    = "goreleaser"
)

// VarsExecutor receives its options uninterpolated together with the
// release variables. Executors that hand options to a shell implement it.
type VarsExecutor interface {
	RunWithVars(ctx context.Context, opts domain.Options, vars map[string]string) (Result, error)
}

// Result is the outcome of one post-target.
type Result struct {
	Success bool
	Message string
}

// Executor runs one kind of post-target.
type Executor interface {
	// Required lists the options that must be set.
	Required() []string
	Run(ctx context.Context, opts domain.Options) (Result, error)
}

// Registry maps executor names to executors.
type Registry struct {
	executors map[string]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: map[string]Executor{}}
}

// Register adds or replaces an executor.
func (r *Registry) Register(name string, e Executor) {
	r.executors[name] = e
}

// Lookup returns the executor registered as name.
func (r *Registry) Lookup(name string) (Executor, bool) {
	e, ok := r.executors[name]
	return e, ok
}

// Deps are the collaborators of the built-in executors.
type Deps struct {
	Runner     service.CommandRunner
	Exec       service.ExecContext
	Npm        service.NpmService
	Github     repository.GithubRepository
	GoReleaser service.GoReleaserService
}

// NewBuiltinRegistry registers every built-in executor.
func NewBuiltinRegistry(deps Deps) *Registry {
	r := NewRegistry()
	r.Register(ShellExecutor, &shellExecutor{runner: deps.Runner, exec: deps.Exec})
	r.Register(NpmPublishExecutor, &npmPublishExecutor{npm: deps.Npm})
	r.Register(GithubReleaseExecutor, &githubReleaseExecutor{github: deps.Github})
	r.Register(GoReleaserExecutor, &goReleaserExecutor{goreleaser: deps.GoReleaser})
	return r
}

type shellExecutor struct {
	runner service.CommandRunner
	exec   service.ExecContext
}

func (e *shellExecutor) Required() []string { return []string{"command"} }

func (e *shellExecutor) Run(ctx context.Context, opts domain.Options) (Result, error) {
	return e.RunWithVars(ctx, opts, nil)
}

// RunWithVars exports vars as MONORELEASE_* variables referenced by the
// command. A non-zero exit is an unsuccessful result.
func (e *shellExecutor) RunWithVars(ctx context.Context, opts domain.Options, vars map[string]string) (Result, error) {
	command, env := service.InterpolateShell(opts.String("command", ""), vars)
	ec := e.exec
	if len(env) > 0 {
		ec = ec.WithEnv(env...)
	}
	if cwd := service.Interpolate(opts.String("cwd", ""), vars); cwd != "" {
		if filepath.IsAbs(cwd) {
			ec = ec.WithDir(cwd)
		} else {
			ec = ec.WithDir(filepath.Join(ec.Dir, cwd))
		}
	}
	res, err := e.runner.Run(ctx, ec, "sh", "-c", command)
	var cmdErr *service.CommandError
	if errors.As(err, &cmdErr) && ctx.Err() == nil {
		return Result{Success: false, Message: strings.TrimSpace(cmdErr.Error())}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: strings.TrimSpace(res.Stdout)}, nil
}

type npmPublishExecutor struct {
	npm service.NpmService
}

func (e *npmPublishExecutor) Required() []string { return []string{"packageRoot"} }

func (e *npmPublishExecutor) Run(ctx context.Context, opts domain.Options) (Result, error) {
	err := e.npm.Publish(ctx, opts.String("packageRoot", ""), service.NpmPublishOptions{
		DistTag: opts.String("distTag", ""),
		Access:  opts.String("access", ""),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true}, nil
}

type githubReleaseExecutor struct {
	github repository.GithubRepository
}

func (e *githubReleaseExecutor) Required() []string { return []string{"tag"} }

func (e *githubReleaseExecutor) Run(ctx context.Context, opts domain.Options) (Result, error) {
	tag := opts.String("tag", "")
	url, err := e.github.CreateRelease(ctx, repository.ReleaseRequest{
		Tag:             tag,
		Name:            opts.String("title", tag),
		Body:            opts.String("notes", ""),
		TargetCommitish: opts.String("target", ""),
		Prerelease:      opts.Bool("prerelease"),
		Draft:           opts.Bool("draft"),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: url}, nil
}

type goReleaserExecutor struct {
	goreleaser service.GoReleaserService
}

func (e *goReleaserExecutor) Required() []string { return nil }

func (e *goReleaserExecutor) Run(ctx context.Context, opts domain.Options) (Result, error) {
	args := opts.Strings("args")
	if len(args) == 0 {
		args = []string{"release", "--clean"}
	}
	out, err := e.goreleaser.Run(ctx, args...)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: strings.TrimSpace(out)}, nil
}
