package service

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const manifestFileMode = 0o644

// ManifestBumper edits the version field of package.json manifests in place,
// keeping key order and indentation untouched.
type ManifestBumper struct {
	Fs afero.Fs
}

// NewManifestBumper creates a ManifestBumper.
func NewManifestBumper(fsys afero.Fs) *ManifestBumper {
	return &ManifestBumper{Fs: fsys}
}

// ReadVersion returns the version field of the manifest at path.
func (m *ManifestBumper) ReadVersion(path string) (string, error) {
	data, err := m.read(path)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "version").String(), nil
}

// ReadName returns the name field of the manifest at path.
func (m *ManifestBumper) ReadName(path string) (string, error) {
	data, err := m.read(path)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(data, "name").String(), nil
}

// Exists reports whether a manifest exists at path.
func (m *ManifestBumper) Exists(path string) (bool, error) {
	return afero.Exists(m.Fs, path)
}

// BumpVersion sets the version field. A missing manifest is skipped and
// reported through the returned bool.
func (m *ManifestBumper) BumpVersion(path, version string, dryRun bool) (bool, error) {
	data, err := m.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	updated, err := sjson.SetBytes(data, "version", version)
	if err != nil {
		return false, fmt.Errorf("failed to set version in %s: %w", path, err)
	}
	if dryRun {
		return true, nil
	}
	if err := afero.WriteFile(m.Fs, path, updated, manifestFileMode); err != nil {
		return false, fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return true, nil
}

func (m *ManifestBumper) read(path string) ([]byte, error) {
	data, err := afero.ReadFile(m.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("manifest %s is not valid JSON", path)
	}
	return data, nil
}
