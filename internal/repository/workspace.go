package repository

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
)

// WorkspaceRepository lists releasable projects and their static
// dependencies.
type WorkspaceRepository interface {
	ListProjectRoots(ctx context.Context) ([]domain.ProjectRef, error)
	Project(ctx context.Context, name string) (domain.ProjectRef, error)
	// DependencyGraph returns the transitive dependencies of a project,
	// excluding the project itself. The aggregate root depends on every
	// other project.
	DependencyGraph(ctx context.Context, name string) ([]domain.DependencyRoot, error)
}

// WorkspaceProject is the static definition of one project.
type WorkspaceProject struct {
	Name      string
	Root      string
	DependsOn []string
}

type staticWorkspace struct {
	root     domain.ProjectRef
	projects []WorkspaceProject
	byName   map[string]WorkspaceProject
}

// NewStaticWorkspace builds a workspace from configured projects. The
// aggregate root project is named rootName and lives at ".".
func NewStaticWorkspace(rootName string, projects []WorkspaceProject) (WorkspaceRepository, error) {
	if rootName == "" {
		return nil, &domain.ConfigError{Field: "workspace.name", Reason: "workspace name cannot be empty"}
	}
	ws := &staticWorkspace{
		root:   domain.ProjectRef{Name: rootName, RootPath: domain.WorkspaceRoot},
		byName: make(map[string]WorkspaceProject, len(projects)),
	}
	for _, p := range projects {
		if p.Name == "" {
			return nil, &domain.ConfigError{Field: "workspace.projects", Reason: "project name cannot be empty"}
		}
		if p.Name == rootName {
			return nil, &domain.ConfigError{
				Field:  "workspace.projects",
				Reason: fmt.Sprintf("project %q shadows the workspace root", p.Name),
			}
		}
		if _, dup := ws.byName[p.Name]; dup {
			return nil, &domain.ConfigError{
				Field:  "workspace.projects",
				Reason: fmt.Sprintf("duplicate project %q", p.Name),
			}
		}
		p.Root = domain.CleanRoot(p.Root)
		ws.projects = append(ws.projects, p)
		ws.byName[p.Name] = p
	}
	for _, p := range ws.projects {
		for _, dep := range p.DependsOn {
			if _, ok := ws.byName[dep]; !ok {
				return nil, &domain.ConfigError{
					Field:  "workspace.projects",
					Reason: fmt.Sprintf("project %q depends on unknown project %q", p.Name, dep),
				}
			}
		}
	}
	return ws, nil
}

// ListProjectRoots returns the aggregate root followed by every project in
// declaration order.
func (w *staticWorkspace) ListProjectRoots(_ context.Context) ([]domain.ProjectRef, error) {
	refs := make([]domain.ProjectRef, 0, len(w.projects)+1)
	refs = append(refs, w.root)
	for _, p := range w.projects {
		refs = append(refs, domain.ProjectRef{Name: p.Name, RootPath: p.Root})
	}
	return refs, nil
}

// Project looks up a project by name. An empty name selects the root.
func (w *staticWorkspace) Project(_ context.Context, name string) (domain.ProjectRef, error) {
	if name == "" || name == w.root.Name {
		return w.root, nil
	}
	p, ok := w.byName[name]
	if !ok {
		return domain.ProjectRef{}, &domain.ConfigError{
			Field:  "project",
			Reason: fmt.Sprintf("unknown project %q", name),
		}
	}
	return domain.ProjectRef{Name: p.Name, RootPath: p.Root}, nil
}

// DependencyGraph walks dependsOn edges depth first. Each dependency appears
// once, in first-visit order, and cycles terminate.
func (w *staticWorkspace) DependencyGraph(_ context.Context, name string) ([]domain.DependencyRoot, error) {
	if name == w.root.Name {
		deps := make([]domain.DependencyRoot, 0, len(w.projects))
		for _, p := range w.projects {
			deps = append(deps, domain.DependencyRoot{Name: p.Name, Path: p.Root})
		}
		return deps, nil
	}
	start, ok := w.byName[name]
	if !ok {
		return nil, &domain.ConfigError{Field: "project", Reason: fmt.Sprintf("unknown project %q", name)}
	}
	visited := map[string]bool{name: true}
	var deps []domain.DependencyRoot
	var visit func(p WorkspaceProject)
	visit = func(p WorkspaceProject) {
		for _, depName := range p.DependsOn {
			if visited[depName] {
				continue
			}
			visited[depName] = true
			dep := w.byName[depName]
			deps = append(deps, domain.DependencyRoot{Name: dep.Name, Path: dep.Root})
			visit(dep)
		}
	}
	visit(start)
	return deps, nil
}
