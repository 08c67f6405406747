package posttarget

import (
	"context"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/stretchr/testify/mock"
)

type mockExecutor struct {
	mock.Mock
	required []string
}

func (m *mockExecutor) Required() []string { return m.required }

func (m *mockExecutor) Run(ctx context.Context, opts domain.Options) (Result, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(Result), args.Error(1)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(
	ctx context.Context,
	ec service.ExecContext,
	name string,
	args ...string,
) (*service.CommandResult, error) {
	ret := m.Called(ctx, ec, name, args)
	res, _ := ret.Get(0).(*service.CommandResult)
	return res, ret.Error(1)
}

type mockGithubRepository struct {
	mock.Mock
}

var _ repository.GithubRepository = (*mockGithubRepository)(nil)

func (m *mockGithubRepository) CreateRelease(ctx context.Context, req repository.ReleaseRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockGithubRepository) MarkLatest(ctx context.Context, tag string) error {
	args := m.Called(ctx, tag)
	return args.Error(0)
}
