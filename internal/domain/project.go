package domain

import (
	"path"
	"strings"
)

// WorkspaceRoot is the root path of the aggregate project.
const WorkspaceRoot = "."

// ProjectRef identifies a releasable unit in the workspace.
type ProjectRef struct {
	Name     string
	RootPath string
}

// IsWorkspaceRoot reports whether the project is the aggregate root.
func (p ProjectRef) IsWorkspaceRoot() bool {
	return CleanRoot(p.RootPath) == WorkspaceRoot
}

// ManifestPath is the package descriptor kept in sync with released versions.
func (p ProjectRef) ManifestPath() string {
	return path.Join(CleanRoot(p.RootPath), "package.json")
}

// ChangelogPath is the project's changelog file.
func (p ProjectRef) ChangelogPath() string {
	return path.Join(CleanRoot(p.RootPath), "CHANGELOG.md")
}

// DependencyRoot is a project the releasing project statically depends on.
type DependencyRoot struct {
	Name string
	Path string
}

// CleanRoot normalizes a workspace-relative project root to slash form.
func CleanRoot(root string) string {
	cleaned := path.Clean(strings.ReplaceAll(strings.TrimSpace(root), "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "" || cleaned == "/" {
		return WorkspaceRoot
	}
	return cleaned
}
