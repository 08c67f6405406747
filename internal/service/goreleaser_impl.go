package service

import (
	"context"
	"fmt"
	"time"
)

// GoReleaserService defines the interface for interacting with goreleaser.
type GoReleaserService interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// goReleaserService implements the GoReleaserService interface
type goReleaserService struct {
	runner  CommandRunner
	exec    ExecContext
	timeout time.Duration
}

// NewGoReleaserService creates a new GoReleaserService
func NewGoReleaserService(runner CommandRunner, ec ExecContext) GoReleaserService {
	return &goReleaserService{runner: runner, exec: ec, timeout: DefaultGoReleaserTimeout}
}

// Run executes goreleaser with the provided arguments and returns its output.
func (s *goReleaserService) Run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.runner.Run(ctx, s.exec, "goreleaser", args...)
	if err != nil {
		return "", fmt.Errorf("goreleaser failed: %w", err)
	}
	return res.Stdout, nil
}
