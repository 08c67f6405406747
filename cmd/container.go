package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/compozy/monorelease/internal/config"
	"github.com/compozy/monorelease/internal/orchestrator"
	"github.com/compozy/monorelease/internal/plugin"
	"github.com/compozy/monorelease/internal/posttarget"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"go.uber.org/zap"
)

// container holds all the dependencies for the application.
type container struct {
	cfg  *config.Config
	lock *repository.ReleaseLock
	orch *orchestrator.ReleaseOrchestrator
}

// newContainer loads the configuration found in dir and wires the release
// orchestrator.
func newContainer(dir string, logger *zap.Logger) (*container, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	projects := make([]repository.WorkspaceProject, 0, len(cfg.Workspace.Projects))
	for _, p := range cfg.Workspace.Projects {
		projects = append(projects, repository.WorkspaceProject{Name: p.Name, Root: p.Root, DependsOn: p.DependsOn})
	}
	workspace, err := repository.NewStaticWorkspace(cfg.Workspace.Name, projects)
	if err != nil {
		return nil, err
	}
	gitRepo, err := repository.NewGitRepository(root)
	if err != nil {
		return nil, err
	}
	fsys := repository.NewWorkspaceFs(root)
	runner := service.NewCommandRunner()
	ec := service.ExecContext{Dir: root, Env: processEnv(cfg)}
	npmSvc := service.NewNpmService(runner, ec)
	ghRepo := newGithubRepository(cfg, logger)

	loader := plugin.NewLoader(fsys, runner, ec, plugin.BuiltinModules(plugin.BuiltinDeps{
		Github:      ghRepo,
		GithubToken: cfg.GithubToken,
		Owner:       cfg.GithubOwner,
		Repo:        cfg.GithubRepo,
		Npm:         npmSvc,
		Manifests:   service.NewManifestBumper(fsys),
		Exec:        ec,
	}))
	registry := posttarget.NewBuiltinRegistry(posttarget.Deps{
		Runner:     runner,
		Exec:       ec,
		Npm:        npmSvc,
		Github:     ghRepo,
		GoReleaser: service.NewGoReleaserService(runner, ec),
	})
	orch := orchestrator.NewReleaseOrchestrator(orchestrator.Deps{
		Workspace:   workspace,
		Git:         gitRepo,
		GitCLI:      service.NewGitCLI(runner, ec),
		Fs:          fsys,
		Plugins:     loader,
		PostTargets: posttarget.NewRunner(registry, cfg.NamedTargets(), logger),
		Logger:      logger,
	})
	return &container{
		cfg:  cfg,
		lock: repository.NewReleaseLock(filepath.Join(root, ".git")),
		orch: orch,
	}, nil
}

// GitHub access is optional: without usable credentials every GitHub call
// fails with an actionable error instead of failing startup.
func newGithubRepository(cfg *config.Config, logger *zap.Logger) repository.GithubRepository {
	if cfg.GithubToken == "" {
		return repository.NewGithubNoopRepository(cfg.GithubOwner, cfg.GithubRepo)
	}
	if err := cfg.ValidateForGitHubOperations(); err != nil {
		logger.Warn("GitHub configuration incomplete, GitHub operations will fail", zap.Error(err))
		return repository.NewGithubNoopRepository(cfg.GithubOwner, cfg.GithubRepo)
	}
	gh, err := repository.NewGithubRepository(cfg.GithubToken, cfg.GithubOwner, cfg.GithubRepo)
	if err != nil {
		logger.Warn("GitHub client unavailable, GitHub operations will fail", zap.Error(err))
		return repository.NewGithubNoopRepository(cfg.GithubOwner, cfg.GithubRepo)
	}
	return gh
}

// processEnv exports configured tokens to child processes unless the
// environment already carries them.
func processEnv(cfg *config.Config) []string {
	env := os.Environ()
	for key, value := range map[string]string{
		"GITHUB_TOKEN": cfg.GithubToken,
		"NPM_TOKEN":    cfg.NpmToken,
	} {
		if value != "" && os.Getenv(key) == "" {
			env = append(env, key+"="+value)
		}
	}
	return env
}
