package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/service"
	"go.uber.org/zap"
)

// CommitRequest describes the manifest bump, primary changelog, commit and
// tag of one release.
type CommitRequest struct {
	Release *domain.Release
	// Project owns the primary changelog: the released project in
	// independent mode, the aggregate root in synced mode.
	Project       domain.ProjectRef
	Commits       []string
	Manifests     []domain.ProjectRef
	SkipChangelog bool
	Header        string
	MessageFormat string
	NoVerify      bool
	DryRun        bool
}

// CommitResult reports what the commit phase changed.
type CommitResult struct {
	Tag     string
	Message string
	Paths   []string
	// Notes are the changelog lines added by this release.
	Notes string
}

// CommitAndTagUseCase bumps manifests, writes the primary changelog and
// records both in a single commit and annotated tag.
type CommitAndTagUseCase struct {
	Git       service.GitCLI
	Engine    *service.ChangelogEngine
	Manifests *service.ManifestBumper
	Logger    *zap.Logger
}

// Execute runs the commit phase. On dry-run nothing is written and the notes
// come from the rendered section.
func (uc *CommitAndTagUseCase) Execute(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if req.Release == nil || req.Release.Version == nil {
		return nil, fmt.Errorf("release version cannot be nil")
	}
	vars := map[string]string{
		"projectName": req.Project.Name,
		"version":     req.Release.Version.Raw(),
		"tag":         req.Release.TagName(),
	}
	result := &CommitResult{
		Tag:     req.Release.TagName(),
		Message: service.Interpolate(req.MessageFormat, vars),
	}
	if req.DryRun {
		return uc.dryRun(ctx, req, result)
	}
	notes, err := uc.Engine.CalculateChangelogChanges(req.Project.ChangelogPath(), req.Header, func() error {
		paths, err := uc.write(ctx, req)
		if err != nil {
			return err
		}
		result.Paths = paths
		if err := uc.Git.Add(ctx, paths); err != nil {
			return fmt.Errorf("failed to stage release files: %w", err)
		}
		if err := uc.Git.Commit(ctx, result.Message, req.NoVerify); err != nil {
			return fmt.Errorf("failed to commit release: %w", err)
		}
		if err := uc.Git.Tag(ctx, result.Tag, result.Message); err != nil {
			return fmt.Errorf("failed to tag release %s: %w", result.Tag, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Notes = notes
	uc.Logger.Info("release committed and tagged",
		zap.String("tag", result.Tag),
		zap.Strings("paths", result.Paths),
	)
	return result, nil
}

func (uc *CommitAndTagUseCase) write(ctx context.Context, req CommitRequest) ([]string, error) {
	var paths []string
	for _, project := range req.Manifests {
		bumped, err := uc.Manifests.BumpVersion(project.ManifestPath(), req.Release.Version.Raw(), false)
		if err != nil {
			return nil, err
		}
		if !bumped {
			uc.Logger.Debug("no manifest to bump", zap.String("project", project.Name))
			continue
		}
		paths = append(paths, project.ManifestPath())
	}
	if req.SkipChangelog {
		return paths, nil
	}
	m, err := uc.Engine.UpdateChangelog(ctx, service.ChangelogRequest{
		Project: req.Project,
		Version: req.Release.Version,
		Commits: req.Commits,
		Header:  req.Header,
	})
	if err != nil {
		return nil, err
	}
	return append(paths, m.FilePath), nil
}

func (uc *CommitAndTagUseCase) dryRun(ctx context.Context, req CommitRequest, result *CommitResult) (*CommitResult, error) {
	for _, project := range req.Manifests {
		bumped, err := uc.Manifests.BumpVersion(project.ManifestPath(), req.Release.Version.Raw(), true)
		if err != nil {
			return nil, err
		}
		if bumped {
			result.Paths = append(result.Paths, project.ManifestPath())
		}
	}
	if !req.SkipChangelog {
		m, err := uc.Engine.UpdateChangelog(ctx, service.ChangelogRequest{
			Project: req.Project,
			Version: req.Release.Version,
			Commits: req.Commits,
			Header:  req.Header,
			DryRun:  true,
		})
		if err != nil {
			return nil, err
		}
		result.Paths = append(result.Paths, m.FilePath)
		result.Notes = m.Diff
	}
	uc.Logger.Info("dry-run: would commit and tag release",
		zap.String("tag", result.Tag),
		zap.String("message", result.Message),
		zap.Strings("paths", result.Paths),
	)
	return result, nil
}
