package plugin

import (
	"context"

	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/stretchr/testify/mock"
)

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

type mockNpmService struct {
	mock.Mock
}

var _ service.NpmService = (*mockNpmService)(nil)

func (m *mockNpmService) Publish(ctx context.Context, packageRoot string, opts service.NpmPublishOptions) error {
	args := m.Called(ctx, packageRoot, opts)
	return args.Error(0)
}

func (m *mockNpmService) AddDistTag(ctx context.Context, packageRoot, spec, tag string) error {
	args := m.Called(ctx, packageRoot, spec, tag)
	return args.Error(0)
}

// nativeHooks records the order its hooks are called in.
type nativeHooks struct {
	calls *[]string
	valid any
}

func (n *nativeHooks) VerifyConditions(_ context.Context, _ *Context) (any, error) {
	*n.calls = append(*n.calls, "verifyConditions")
	return n.valid, nil
}

func (n *nativeHooks) Publish(_ context.Context, _ *Context) error {
	*n.calls = append(*n.calls, "publish")
	return nil
}

func (n *nativeHooks) AddChannel(_ context.Context, _ *Context) error {
	*n.calls = append(*n.calls, "addChannel")
	return nil
}
