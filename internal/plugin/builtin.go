package plugin

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
)

// Built-in module names.
const (
	GithubModule = "@monorelease/github"
	NpmModule    = "@monorelease/npm"
)

// BuiltinDeps are the collaborators of the built-in plugins.
type BuiltinDeps struct {
	Github      repository.GithubRepository
	GithubToken string
	Owner       string
	Repo        string
	Npm         service.NpmService
	Manifests   *service.ManifestBumper
	Exec        service.ExecContext
}

// BuiltinModules returns the factories of the built-in plugins.
func BuiltinModules(deps BuiltinDeps) map[string]Factory {
	return map[string]Factory{
		GithubModule: func(options domain.Options) (any, error) {
			return &githubPlugin{deps: deps, options: options}, nil
		},
		NpmModule: func(options domain.Options) (any, error) {
			return &npmPlugin{deps: deps, options: options}, nil
		},
	}
}

type githubPlugin struct {
	deps    BuiltinDeps
	options domain.Options
}

func (p *githubPlugin) VerifyConditions(_ context.Context, _ *Context) (any, error) {
	return p.deps.GithubToken != "" && p.deps.Owner != "" && p.deps.Repo != "", nil
}

func (p *githubPlugin) Publish(ctx context.Context, rc *Context) error {
	tag := rc.Release.TagName()
	_, err := p.deps.Github.CreateRelease(ctx, repository.ReleaseRequest{
		Tag:        tag,
		Name:       p.options.String("title", tag),
		Body:       rc.Notes,
		Prerelease: rc.Release.Version.IsPrerelease(),
		Draft:      p.options.Bool("draft"),
	})
	return err
}

// AddChannel marks stable releases as latest.
func (p *githubPlugin) AddChannel(ctx context.Context, rc *Context) error {
	if rc.Release.Version.IsPrerelease() || p.options.Bool("draft") {
		return nil
	}
	return p.deps.Github.MarkLatest(ctx, rc.Release.TagName())
}

type npmPlugin struct {
	deps    BuiltinDeps
	options domain.Options
}

func (p *npmPlugin) packageRoot(rc *Context) string {
	return p.options.String("packageRoot", rc.Project.RootPath)
}

func (p *npmPlugin) VerifyConditions(_ context.Context, rc *Context) (any, error) {
	exists, err := p.deps.Manifests.Exists(domain.ProjectRef{RootPath: p.packageRoot(rc)}.ManifestPath())
	if err != nil {
		return nil, err
	}
	return exists && p.deps.Exec.Lookup("NPM_TOKEN") != "", nil
}

func (p *npmPlugin) Publish(ctx context.Context, rc *Context) error {
	distTag := p.options.String("distTag", "latest")
	if rc.Release.Version.IsPrerelease() {
		distTag = p.options.String("prereleaseTag", "next")
	}
	return p.deps.Npm.Publish(ctx, p.packageRoot(rc), service.NpmPublishOptions{
		DistTag: distTag,
		Access:  p.options.String("access", "public"),
		DryRun:  rc.DryRun,
	})
}

// AddChannel points every extra channel at the published version.
func (p *npmPlugin) AddChannel(ctx context.Context, rc *Context) error {
	channels := p.options.Strings("channels")
	if len(channels) == 0 || rc.DryRun {
		return nil
	}
	root := p.packageRoot(rc)
	name, err := p.deps.Manifests.ReadName(domain.ProjectRef{RootPath: root}.ManifestPath())
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("package at %s has no name", root)
	}
	spec := name + "@" + rc.Release.Version.Raw()
	for _, channel := range channels {
		if err := p.deps.Npm.AddDistTag(ctx, root, spec, channel); err != nil {
			return err
		}
	}
	return nil
}
