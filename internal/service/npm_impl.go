package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NpmPublishOptions controls an npm publish.
type NpmPublishOptions struct {
	DistTag string
	Access  string
	DryRun  bool
}

// NpmService defines the interface for interacting with npm.
type NpmService interface {
	Publish(ctx context.Context, packageRoot string, opts NpmPublishOptions) error
	AddDistTag(ctx context.Context, packageRoot, spec, tag string) error
}

// npmService is the implementation of the NpmService interface.
type npmService struct {
	runner  CommandRunner
	exec    ExecContext
	timeout time.Duration
}

// NewNpmService creates a new NpmService. Package roots are resolved against
// the execution context directory.
func NewNpmService(runner CommandRunner, ec ExecContext) NpmService {
	return &npmService{
		runner:  runner,
		exec:    ec,
		timeout: DefaultNPMTimeout,
	}
}

// Publish publishes the package at packageRoot.
func (s *npmService) Publish(ctx context.Context, packageRoot string, opts NpmPublishOptions) error {
	dir, err := s.sanitizePath(packageRoot)
	if err != nil {
		return fmt.Errorf("invalid package path: %w", err)
	}
	access := opts.Access
	if access == "" {
		access = "public"
	}
	args := []string{"publish", "--access", access}
	if opts.DistTag != "" {
		args = append(args, "--tag", opts.DistTag)
	}
	if opts.DryRun {
		args = append(args, "--dry-run")
	}
	if err := s.executeCommand(ctx, dir, args...); err != nil {
		return fmt.Errorf("failed to publish npm package at %s: %w", packageRoot, err)
	}
	return nil
}

// AddDistTag points tag at spec ("name@version").
func (s *npmService) AddDistTag(ctx context.Context, packageRoot, spec, tag string) error {
	dir, err := s.sanitizePath(packageRoot)
	if err != nil {
		return fmt.Errorf("invalid package path: %w", err)
	}
	if err := s.executeCommand(ctx, dir, "dist-tag", "add", spec, tag); err != nil {
		return fmt.Errorf("failed to add dist-tag %s to %s: %w", tag, spec, err)
	}
	return nil
}

// executeCommand runs npm with timeout. NODE_AUTH_TOKEN mirrors NPM_TOKEN so
// registries configured by setup-node authenticate.
func (s *npmService) executeCommand(ctx context.Context, dir string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ec := s.exec.WithDir(dir)
	if token := ec.Lookup("NPM_TOKEN"); token != "" && ec.Lookup("NODE_AUTH_TOKEN") == "" {
		ec = ec.WithEnv("NODE_AUTH_TOKEN=" + token)
	}
	if _, err := s.runner.Run(ctx, ec, "npm", args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("command timed out after %v", s.timeout)
		}
		return err
	}
	return nil
}

// sanitizePath resolves packageRoot inside the workspace and checks that it
// holds a package.json. Symlinks are evaluated so they cannot escape.
func (s *npmService) sanitizePath(packageRoot string) (string, error) {
	if strings.TrimSpace(packageRoot) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	base, err := filepath.Abs(s.exec.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	if base, err = filepath.EvalSymlinks(base); err != nil {
		return "", fmt.Errorf("failed to resolve workspace directory symlinks: %w", err)
	}
	target := packageRoot
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(target))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", target)
		}
		return "", fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	if resolved != base && !strings.HasPrefix(resolved, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal detected: path must be within project directory")
	}
	if _, err := os.Stat(filepath.Join(resolved, "package.json")); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("package.json not found in directory: %s", resolved)
		}
		return "", fmt.Errorf("failed to check package.json: %w", err)
	}
	return resolved, nil
}
