package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// VersionRequest is the input of a version calculation.
type VersionRequest struct {
	Project      domain.ProjectRef
	Dependencies []domain.DependencyRoot
	Options      domain.ReleaseOptions
}

// CalculateVersionUseCase decides whether a project needs a release and
// computes the next version.
type CalculateVersionUseCase struct {
	Tags     *service.TagResolver
	Commits  *service.CommitCollector
	Analyzer *service.CommitAnalyzer
	Logger   *zap.Logger
}

// Execute returns the release candidate, or nil when nothing qualifies.
func (uc *CalculateVersionUseCase) Execute(ctx context.Context, req VersionRequest) (*domain.ReleaseCandidate, error) {
	opts := req.Options
	prefix := domain.ResolveTagPrefix(opts.TagPrefix, req.Project.Name)
	previous, since, err := uc.resolvePrevious(ctx, req.Project, prefix, opts)
	if err != nil {
		return nil, err
	}
	commits, err := uc.Commits.Commits(ctx, req.Project.RootPath, since)
	if err != nil {
		return nil, err
	}
	commits = uc.Analyzer.FilterTypes(commits, opts.SkipCommitTypes)
	var updates []domain.DependencyUpdate
	if opts.TracksDependencies() && len(req.Dependencies) > 0 {
		if updates, err = uc.dependencyUpdates(ctx, req.Dependencies, since, opts); err != nil {
			return nil, err
		}
	}
	releaseType := opts.ReleaseType
	preid := opts.Preid
	if releaseType == "" {
		// Auto mode always produces a release-family bump; preid only
		// applies to explicit prerelease bumps.
		preid = ""
		switch {
		case len(commits) == 0 && len(updates) == 0 && !opts.AllowEmptyRelease:
			return nil, nil
		case len(commits) == 0:
			releaseType = domain.ReleaseTypePatch
		default:
			releaseType = uc.Analyzer.RecommendBump(commits)
		}
	}
	next, err := previous.Bump(releaseType, preid)
	if err != nil {
		return nil, fmt.Errorf("failed to bump %s: %w", previous.Raw(), err)
	}
	if !next.GreaterThan(previous) {
		return nil, fmt.Errorf("refusing to release %s: %s bump does not advance past %s",
			next.Raw(), releaseType, previous.Raw())
	}
	if updates == nil {
		updates = []domain.DependencyUpdate{}
	}
	return &domain.ReleaseCandidate{
		Version:           next,
		PreviousVersion:   previous,
		DependencyUpdates: updates,
		TagPrefix:         prefix,
		Commits:           commits,
		Since:             since,
	}, nil
}

// resolvePrevious finds the last released version and the reference commits
// are collected from. A project without tags starts at 0.0.0 from the
// repository's first commit.
func (uc *CalculateVersionUseCase) resolvePrevious(
	ctx context.Context,
	project domain.ProjectRef,
	prefix string,
	opts domain.ReleaseOptions,
) (*domain.Version, string, error) {
	last, err := uc.Tags.LastVersion(ctx, service.TagQuery{
		Prefix:            prefix,
		IncludePrerelease: opts.ReleaseType == domain.ReleaseTypePrerelease,
		Preid:             opts.Preid,
	})
	if err == nil {
		return last, domain.FormatTag(prefix, last), nil
	}
	if !errors.Is(err, domain.ErrTagNotFound) {
		return nil, "", fmt.Errorf("failed to get last version: %w", err)
	}
	uc.Logger.Warn("no previous release tag found, starting from "+domain.InitialVersion,
		zap.String("project", project.Name),
		zap.String("tag_prefix", prefix),
		zap.String("hint", fmt.Sprintf(
			"if %s was already released, tag its last release as %s<version> before running again",
			project.Name, prefix)),
	)
	first, err := uc.Commits.FirstCommitRef(ctx)
	if err != nil {
		return nil, "", err
	}
	initial, err := domain.NewVersion(domain.InitialVersion)
	if err != nil {
		return nil, "", err
	}
	return initial, first, nil
}

// dependencyUpdates collects every dependency's commits concurrently and
// returns the dependencies that contributed qualifying commits, in
// dependency order.
func (uc *CalculateVersionUseCase) dependencyUpdates(
	ctx context.Context,
	deps []domain.DependencyRoot,
	since string,
	opts domain.ReleaseOptions,
) ([]domain.DependencyUpdate, error) {
	changed := make([]*domain.DependencyUpdate, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	for i, dep := range deps {
		g.Go(func() error {
			commits, err := uc.Commits.Commits(gctx, dep.Path, since)
			if err != nil {
				return err
			}
			if len(uc.Analyzer.FilterTypes(commits, opts.SkipCommitTypes)) == 0 {
				return nil
			}
			version, err := uc.lastDependencyVersion(gctx, dep, opts)
			if err != nil {
				return err
			}
			changed[i] = &domain.DependencyUpdate{Name: dep.Name, Version: version}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect dependency commits: %w", err)
	}
	updates := []domain.DependencyUpdate{}
	for _, u := range changed {
		if u != nil {
			updates = append(updates, *u)
		}
	}
	return updates, nil
}

func (uc *CalculateVersionUseCase) lastDependencyVersion(
	ctx context.Context,
	dep domain.DependencyRoot,
	opts domain.ReleaseOptions,
) (string, error) {
	v, err := uc.Tags.LastVersion(ctx, service.TagQuery{Prefix: domain.ResolveTagPrefix(opts.TagPrefix, dep.Name)})
	if errors.Is(err, domain.ErrTagNotFound) {
		return domain.InitialVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last version of %s: %w", dep.Name, err)
	}
	return v.Raw(), nil
}
