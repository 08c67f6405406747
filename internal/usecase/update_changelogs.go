package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/service"
	"golang.org/x/sync/errgroup"
)

// ChangelogsRequest selects the projects whose changelogs receive a section
// for Version.
type ChangelogsRequest struct {
	Projects        []domain.ProjectRef
	Version         *domain.Version
	Since           string
	Header          string
	SkipCommitTypes []string
	DryRun          bool
}

// UpdateChangelogsUseCase writes one changelog section per project, each
// listing only that project's commits.
type UpdateChangelogsUseCase struct {
	Engine   *service.ChangelogEngine
	Commits  *service.CommitCollector
	Analyzer *service.CommitAnalyzer
}

// Execute updates every changelog concurrently and returns the mutations in
// project order once all of them landed.
func (uc *UpdateChangelogsUseCase) Execute(
	ctx context.Context,
	req ChangelogsRequest,
) ([]*service.ChangelogMutation, error) {
	mutations := make([]*service.ChangelogMutation, len(req.Projects))
	g, gctx := errgroup.WithContext(ctx)
	for i, project := range req.Projects {
		g.Go(func() error {
			commits, err := uc.Commits.Commits(gctx, project.RootPath, req.Since)
			if err != nil {
				return err
			}
			m, err := uc.Engine.UpdateChangelog(gctx, service.ChangelogRequest{
				Project: project,
				Version: req.Version,
				Commits: uc.Analyzer.FilterTypes(commits, req.SkipCommitTypes),
				Header:  req.Header,
				DryRun:  req.DryRun,
			})
			if err != nil {
				return fmt.Errorf("failed to update changelog of %s: %w", project.Name, err)
			}
			mutations[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mutations, nil
}

// Paths lists the changelog files of mutations.
func Paths(mutations []*service.ChangelogMutation) []string {
	paths := make([]string, 0, len(mutations))
	for _, m := range mutations {
		paths = append(paths, m.FilePath)
	}
	return paths
}
