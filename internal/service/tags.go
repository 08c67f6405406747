package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
)

// TagQuery selects which tags count as releases of a project.
type TagQuery struct {
	Prefix            string
	IncludePrerelease bool
	Preid             string
}

// TagResolver finds the latest released version of a project from its tags.
type TagResolver struct {
	Git repository.GitRepository
}

// NewTagResolver creates a TagResolver.
func NewTagResolver(git repository.GitRepository) *TagResolver {
	return &TagResolver{Git: git}
}

// LastVersion returns the highest version among tags matching the query, or
// domain.ErrTagNotFound when none survives filtering.
func (r *TagResolver) LastVersion(ctx context.Context, q TagQuery) (*domain.Version, error) {
	tags, err := r.Git.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	var latest *domain.Version
	for _, tag := range tags {
		raw, ok := strings.CutPrefix(tag, q.Prefix)
		if !ok {
			continue
		}
		v, err := domain.NewStrictVersion(raw)
		if err != nil {
			continue
		}
		if !q.IncludePrerelease && v.Prerelease() != "" {
			continue
		}
		if q.IncludePrerelease && q.Preid != "" && v.PrereleaseID() != q.Preid {
			continue
		}
		if latest == nil || v.GreaterThan(latest) {
			latest = v
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w for prefix %q", domain.ErrTagNotFound, q.Prefix)
	}
	return latest, nil
}
