package usecase

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/service"
	"go.uber.org/zap"
)

// PushReleaseUseCase pushes the release commit and tag.
type PushReleaseUseCase struct {
	Git    service.GitCLI
	Logger *zap.Logger
}

// Execute pushes atomically and retries once without --atomic when the
// remote rejects atomic pushes. Any other failure is returned as is.
func (uc *PushReleaseUseCase) Execute(ctx context.Context, remote, branch string, noVerify bool) error {
	opts := service.PushOptions{Remote: remote, Branch: branch, Atomic: true, NoVerify: noVerify}
	err := uc.Git.Push(ctx, opts)
	if err == nil {
		return nil
	}
	if !service.IsAtomicUnsupported(err) {
		return fmt.Errorf("failed to push to %s/%s: %w", remote, branch, err)
	}
	uc.Logger.Warn("remote does not support atomic push, retrying without --atomic",
		zap.String("remote", remote), zap.String("branch", branch), zap.Error(err))
	opts.Atomic = false
	if err := uc.Git.Push(ctx, opts); err != nil {
		return fmt.Errorf("failed to push to %s/%s: %w", remote, branch, err)
	}
	return nil
}
