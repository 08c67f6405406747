package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/plugin"
	"github.com/compozy/monorelease/internal/posttarget"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/compozy/monorelease/internal/usecase"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Result is the outcome of one release attempt.
type Result struct {
	Success bool
	RunID   string
	// Version and Tag are empty when nothing was released.
	Version string
	Tag     string
	Notes   string
	Record  *domain.ReleaseRecord
	Err     error
}

// Deps are the collaborators of the orchestrator.
type Deps struct {
	Workspace   repository.WorkspaceRepository
	Git         repository.GitRepository
	GitCLI      service.GitCLI
	Fs          afero.Fs
	Plugins     *plugin.Loader
	PostTargets *posttarget.Runner
	Logger      *zap.Logger
}

// ReleaseOrchestrator runs the release pipeline: version calculation,
// changelogs, manifest bump, commit, tag, push, post-targets and plugin
// publishing.
type ReleaseOrchestrator struct {
	workspace   repository.WorkspaceRepository
	git         repository.GitRepository
	gitCLI      service.GitCLI
	plugins     *plugin.Loader
	postTargets *posttarget.Runner
	logger      *zap.Logger

	calculate  *usecase.CalculateVersionUseCase
	changelogs *usecase.UpdateChangelogsUseCase
	commit     *usecase.CommitAndTagUseCase
	push       *usecase.PushReleaseUseCase
	notes      *usecase.PrepareReleaseNotesUseCase
}

// NewReleaseOrchestrator wires the release use cases.
func NewReleaseOrchestrator(deps Deps) *ReleaseOrchestrator {
	analyzer := service.NewCommitAnalyzer()
	commits := service.NewCommitCollector(deps.Git)
	engine := service.NewChangelogEngine(deps.Fs, analyzer)
	return &ReleaseOrchestrator{
		workspace:   deps.Workspace,
		git:         deps.Git,
		gitCLI:      deps.GitCLI,
		plugins:     deps.Plugins,
		postTargets: deps.PostTargets,
		logger:      deps.Logger,
		calculate: &usecase.CalculateVersionUseCase{
			Tags:     service.NewTagResolver(deps.Git),
			Commits:  commits,
			Analyzer: analyzer,
			Logger:   deps.Logger,
		},
		changelogs: &usecase.UpdateChangelogsUseCase{Engine: engine, Commits: commits, Analyzer: analyzer},
		commit: &usecase.CommitAndTagUseCase{
			Git:       deps.GitCLI,
			Engine:    engine,
			Manifests: service.NewManifestBumper(deps.Fs),
			Logger:    deps.Logger,
		},
		push:  &usecase.PushReleaseUseCase{Git: deps.GitCLI, Logger: deps.Logger},
		notes: &usecase.PrepareReleaseNotesUseCase{},
	}
}

// release carries the state shared by the phases of one attempt.
type release struct {
	opts      domain.ReleaseOptions
	project   domain.ProjectRef
	projects  []domain.ProjectRef
	candidate *domain.ReleaseCandidate
	release   *domain.Release
	hooks     *plugin.Handler
	targets   []posttarget.Target
	pctx      *plugin.Context
	staged    []string
	logger    *zap.Logger
}

// Version releases projectName (the workspace root in synced mode). It never
// returns an error or panics: failures are logged and reported through
// Result.
func (o *ReleaseOrchestrator) Version(ctx context.Context, projectName string, opts domain.ReleaseOptions) (result Result) {
	result.RunID = uuid.New().String()
	logger := o.logger.With(zap.String("run_id", result.RunID))
	record := domain.NewReleaseRecord(result.RunID, projectName)
	result.Record = record
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("release panicked: %v", r)
			logger.Error("release failed", zap.Error(err), zap.Stack("stack"))
			record.Transition(domain.ReleaseStateFailed)
			result.Success = false
			result.Err = err
		}
	}()
	rel, err := o.prepare(ctx, projectName, opts, logger)
	if err != nil {
		return o.fail(logger, record, result, err)
	}
	record.Project = rel.project.Name
	record.Transition(domain.ReleaseStateComputingVersion)
	deps, err := o.dependencies(ctx, rel)
	if err != nil {
		return o.fail(logger, record, result, err)
	}
	rel.candidate, err = o.calculate.Execute(ctx, usecase.VersionRequest{
		Project:      rel.project,
		Dependencies: deps,
		Options:      rel.opts,
	})
	if err != nil {
		return o.fail(logger, record, result, fmt.Errorf("failed to calculate version: %w", err))
	}
	if rel.candidate == nil {
		record.Transition(domain.ReleaseStateNoRelease)
		rel.logger.Info("nothing changed since the last release, skipping", zap.String("project", rel.project.Name))
		record.Transition(domain.ReleaseStateDone)
		result.Success = true
		return result
	}
	rel.release = &domain.Release{
		ProjectName:     rel.project.Name,
		Version:         rel.candidate.Version,
		PreviousVersion: rel.candidate.PreviousVersion,
		TagPrefix:       rel.candidate.TagPrefix,
	}
	rel.pctx = &plugin.Context{Release: rel.release, Project: rel.project, DryRun: rel.opts.DryRun}
	record.Version = rel.candidate.Version.Raw()
	result.Version = rel.candidate.Version.Raw()
	result.Tag = rel.release.TagName()
	rel.logger.Info("release calculated",
		zap.String("version", result.Version),
		zap.String("previous_version", rel.candidate.PreviousVersion.Raw()),
		zap.String("tag", result.Tag),
		zap.Any("dependency_updates", rel.candidate.DependencyUpdates),
	)
	if err := ValidateTagName(result.Tag); err != nil {
		return o.fail(logger, record, result, &domain.ConfigError{Field: "tagPrefix", Reason: err.Error()})
	}
	exists, err := o.git.TagExists(ctx, result.Tag)
	if err != nil {
		return o.fail(logger, record, result, err)
	}
	if exists {
		return o.fail(logger, record, result, &domain.ConfigError{
			Field:  "tag",
			Reason: fmt.Sprintf("tag %q already exists, delete it or release a different version", result.Tag),
		})
	}
	record.Transition(domain.ReleaseStateReleasing)
	executor := NewPhaseExecutor(record, rel.logger)
	o.addPhases(executor, rel)
	if err := executor.Execute(ctx); err != nil {
		return o.fail(logger, record, result, err)
	}
	record.Transition(domain.ReleaseStateDone)
	result.Notes = rel.release.Notes
	result.Success = true
	if rel.opts.DryRun {
		rel.logger.Info("dry-run complete, nothing was written", zap.String("version", result.Version))
		return result
	}
	rel.logger.Info("release completed", zap.String("version", result.Version), zap.String("tag", result.Tag))
	return result
}

// prepare resolves everything that can be checked before touching git:
// options, project, post-target schemas and plugins.
func (o *ReleaseOrchestrator) prepare(
	ctx context.Context,
	projectName string,
	opts domain.ReleaseOptions,
	logger *zap.Logger,
) (*release, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Push {
		if err := ValidateBranchName(opts.BaseBranch); err != nil {
			return nil, &domain.ConfigError{Field: "baseBranch", Reason: err.Error()}
		}
	}
	if opts.SyncVersions {
		projectName = ""
	}
	project, err := o.workspace.Project(ctx, projectName)
	if err != nil {
		return nil, err
	}
	projects, err := o.workspace.ListProjectRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	targets, err := o.postTargets.Resolve(opts.PostTargets)
	if err != nil {
		return nil, err
	}
	plugins, err := o.plugins.Load(opts.Plugins)
	if err != nil {
		return nil, err
	}
	rl := logger.With(zap.String("project", project.Name))
	return &release{
		opts:     opts,
		project:  project,
		projects: projects,
		hooks:    plugin.NewHandler(plugins, rl),
		targets:  targets,
		logger:   rl,
	}, nil
}

func (o *ReleaseOrchestrator) dependencies(ctx context.Context, rel *release) ([]domain.DependencyRoot, error) {
	if !rel.opts.TracksDependencies() {
		return nil, nil
	}
	deps, err := o.workspace.DependencyGraph(ctx, rel.project.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dependency graph of %s: %w", rel.project.Name, err)
	}
	return deps, nil
}

func (o *ReleaseOrchestrator) addPhases(executor *PhaseExecutor, rel *release) {
	dry := rel.opts.DryRun
	executor.AddPhase(Phase{Type: domain.PhaseValidatePlugins, Execute: func(ctx context.Context) error {
		return o.validatePlugins(ctx, rel)
	}})
	executor.AddPhase(Phase{Type: domain.PhasePreparePlugins, Skip: dry, Execute: func(ctx context.Context) error {
		return rel.hooks.Prepare(ctx, rel.pctx)
	}})
	executor.AddPhase(Phase{
		Type: domain.PhaseChangelog,
		Skip: !rel.opts.SyncVersions || rel.opts.SkipProjectChangelog,
		Execute: func(ctx context.Context) error {
			return o.updateProjectChangelogs(ctx, rel)
		},
	})
	executor.AddPhase(Phase{Type: domain.PhaseStage, Skip: dry, Execute: func(ctx context.Context) error {
		return o.gitCLI.Add(ctx, rel.staged)
	}})
	executor.AddPhase(Phase{Type: domain.PhaseCommitAndTag, Execute: func(ctx context.Context) error {
		return o.commitAndTag(ctx, rel)
	}})
	executor.AddPhase(Phase{Type: domain.PhasePush, Skip: dry || !rel.opts.Push, Execute: func(ctx context.Context) error {
		o.checkBranch(ctx, rel)
		return o.push.Execute(ctx, rel.opts.Remote, rel.opts.BaseBranch, rel.opts.NoVerify)
	}})
	executor.AddPhase(Phase{Type: domain.PhasePostTargets, Skip: dry, Execute: func(ctx context.Context) error {
		return o.postTargets.Run(ctx, rel.targets, rel.pctx.Vars())
	}})
	executor.AddPhase(Phase{Type: domain.PhasePublish, Skip: dry, Execute: func(ctx context.Context) error {
		executor.Record().Transition(domain.ReleaseStatePublishing)
		return rel.hooks.Publish(ctx, rel.pctx)
	}})
}

// checkBranch warns when HEAD is not the branch the release is pushed to.
func (o *ReleaseOrchestrator) checkBranch(ctx context.Context, rel *release) {
	branch, err := o.git.CurrentBranch(ctx)
	if err != nil {
		rel.logger.Debug("could not determine current branch", zap.Error(err))
		return
	}
	if branch != rel.opts.BaseBranch {
		rel.logger.Warn("pushing release from a branch other than the base branch",
			zap.String("branch", branch),
			zap.String("base_branch", rel.opts.BaseBranch),
		)
	}
}

func (o *ReleaseOrchestrator) validatePlugins(ctx context.Context, rel *release) error {
	results, err := rel.hooks.Validate(ctx, rel.pctx)
	if err != nil {
		return err
	}
	for i, ok := range results {
		if !ok {
			return &domain.ConfigError{
				Field:  "plugins",
				Reason: fmt.Sprintf("conditions of plugin %q are not met", rel.hooks.Plugins()[i].Name),
			}
		}
	}
	return nil
}

// updateProjectChangelogs writes the changelog of every synced project but
// the aggregate root, whose changelog is part of the commit phase.
func (o *ReleaseOrchestrator) updateProjectChangelogs(ctx context.Context, rel *release) error {
	var projects []domain.ProjectRef
	for _, p := range rel.projects {
		if !p.IsWorkspaceRoot() {
			projects = append(projects, p)
		}
	}
	mutations, err := o.changelogs.Execute(ctx, usecase.ChangelogsRequest{
		Projects:        projects,
		Version:         rel.candidate.Version,
		Since:           rel.candidate.Since,
		Header:          rel.opts.ChangelogHeader,
		SkipCommitTypes: rel.opts.SkipCommitTypes,
		DryRun:          rel.opts.DryRun,
	})
	if err != nil {
		return err
	}
	rel.staged = usecase.Paths(mutations)
	return nil
}

func (o *ReleaseOrchestrator) commitAndTag(ctx context.Context, rel *release) error {
	manifests := []domain.ProjectRef{rel.project}
	skipChangelog := rel.opts.SkipProjectChangelog
	if rel.opts.SyncVersions {
		manifests = rel.projects
		skipChangelog = rel.opts.SkipRootChangelog
	}
	res, err := o.commit.Execute(ctx, usecase.CommitRequest{
		Release:       rel.release,
		Project:       rel.project,
		Commits:       rel.candidate.Commits,
		Manifests:     manifests,
		SkipChangelog: skipChangelog,
		Header:        rel.opts.ChangelogHeader,
		MessageFormat: rel.opts.CommitMessageFormat,
		NoVerify:      rel.opts.NoVerify,
		DryRun:        rel.opts.DryRun,
	})
	if err != nil {
		return err
	}
	rel.release.Notes = res.Notes
	notes, err := o.notes.Execute(ctx, rel.release)
	if err != nil {
		return err
	}
	rel.pctx.Notes = notes
	return nil
}

func (o *ReleaseOrchestrator) fail(logger *zap.Logger, record *domain.ReleaseRecord, result Result, err error) Result {
	record.Transition(domain.ReleaseStateFailed)
	if record.Error == "" {
		record.Error = err.Error()
	}
	result.Success = false
	result.Err = err
	var phaseErr *domain.PhaseError
	switch {
	case domain.IsSchemaError(err):
		logger.Error("post-target schema error: " + err.Error())
	case errors.As(err, &phaseErr):
		logger.Error("release failed",
			zap.String("phase", string(phaseErr.Phase)),
			zap.Error(err),
		)
	default:
		logger.Error("release failed", zap.Error(err))
	}
	return result
}
