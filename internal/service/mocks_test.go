package service

import (
	"context"

	"github.com/compozy/monorelease/internal/repository"
	"github.com/stretchr/testify/mock"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, ec ExecContext, name string, args ...string) (*CommandResult, error) {
	callArgs := m.Called(ctx, ec, name, args)
	if res := callArgs.Get(0); res != nil {
		return res.(*CommandResult), callArgs.Error(1)
	}
	return nil, callArgs.Error(1)
}

type mockGitRepository struct {
	mock.Mock
}

var _ repository.GitRepository = (*mockGitRepository)(nil)

func (m *mockGitRepository) ListTags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tags, _ := args.Get(0).([]string)
	return tags, args.Error(1)
}

func (m *mockGitRepository) TagExists(ctx context.Context, tag string) (bool, error) {
	args := m.Called(ctx, tag)
	return args.Bool(0), args.Error(1)
}

func (m *mockGitRepository) CommitMessages(ctx context.Context, since, path string) ([]string, error) {
	args := m.Called(ctx, since, path)
	msgs, _ := args.Get(0).([]string)
	return msgs, args.Error(1)
}

func (m *mockGitRepository) FirstCommit(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockGitRepository) CurrentBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
