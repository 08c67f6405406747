package repository

import "github.com/spf13/afero"

// FileSystemRepository is the filesystem changelogs and manifests are read
// from and written to. Paths are relative to the workspace root.
type FileSystemRepository interface {
	afero.Fs
}

// NewWorkspaceFs roots an OS filesystem at the workspace directory.
func NewWorkspaceFs(root string) FileSystemRepository {
	return afero.NewBasePathFs(afero.NewOsFs(), root)
}
