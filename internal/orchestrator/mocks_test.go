package orchestrator

import (
	"context"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/posttarget"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/stretchr/testify/mock"
)

// Mock for GitRepository
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

// Mock for GitCLI
type mockGitCLI struct {
	mock.Mock
}

var _ service.GitCLI = (*mockGitCLI)(nil)

func (m *mockGitCLI) Add(ctx context.Context, paths []string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

func (m *mockGitCLI) Commit(ctx context.Context, message string, noVerify bool) error {
	args := m.Called(ctx, message, noVerify)
	return args.Error(0)
}

func (m *mockGitCLI) Tag(ctx context.Context, name, message string) error {
	args := m.Called(ctx, name, message)
	return args.Error(0)
}

func (m *mockGitCLI) Push(ctx context.Context, opts service.PushOptions) error {
	args := m.Called(ctx, opts)
	return args.Error(0)
}

// Mock for post-target executors
type mockExecutor struct {
	mock.Mock
}

var _ posttarget.Executor = (*mockExecutor)(nil)

func (m *mockExecutor) Required() []string { return nil }

func (m *mockExecutor) Run(ctx context.Context, opts domain.Options) (posttarget.Result, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(posttarget.Result), args.Error(1)
}
