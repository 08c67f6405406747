package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testContext(t *testing.T, version string) *Context {
	t.Helper()
	v, err := domain.NewVersion(version)
	require.NoError(t, err)
	return &Context{
		Release: &domain.Release{ProjectName: "lib-a", Version: v, TagPrefix: "lib-a-"},
		Project: domain.ProjectRef{Name: "lib-a", RootPath: "packages/a"},
		Notes:   "* feature",
	}
}

func newTestLoader(fsys afero.Fs, runner service.CommandRunner, modules map[string]Factory) *Loader {
	return NewLoader(fsys, runner, service.ExecContext{Dir: "/ws"}, modules)
}

func load(t *testing.T, l *Loader, names ...string) *Handler {
	t.Helper()
	descriptors := make([]domain.Descriptor, len(names))
	for i, n := range names {
		descriptors[i] = domain.Descriptor{Kind: domain.DescriptorBare, Name: n}
	}
	plugins, err := l.Load(descriptors)
	require.NoError(t, err)
	return NewHandler(plugins, zap.NewNop())
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should use SemverPlugins as they are", func(t *testing.T) {
		own := &SemverPlugin{Name: "own"}
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"own": func(domain.Options) (any, error) { return own, nil },
		})
		plugins, err := l.Load([]domain.Descriptor{{Name: "own"}})
		require.NoError(t, err)
		assert.Same(t, own, plugins[0])
	})
	t.Run("Should call publish before addChannel for native hooks", func(t *testing.T) {
		var calls []string
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"native": func(domain.Options) (any, error) { return &nativeHooks{calls: &calls, valid: true}, nil },
		})
		h := load(t, l, "native")
		require.NoError(t, h.Publish(context.Background(), testContext(t, "1.0.0")))
		assert.Equal(t, []string{"publish", "addChannel"}, calls)
	})
	t.Run("Should reject unknown modules by name", func(t *testing.T) {
		l := newTestLoader(afero.NewMemMapFs(), nil, nil)
		_, err := l.Load([]domain.Descriptor{{Name: "ghost"}})
		assert.ErrorIs(t, err, domain.ErrUnsupportedPlugin)
		assert.ErrorContains(t, err, `"ghost"`)
	})
	t.Run("Should reject modules of unknown shape by name", func(t *testing.T) {
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"odd": func(domain.Options) (any, error) { return 42, nil },
		})
		_, err := l.Load([]domain.Descriptor{{Name: "odd"}})
		assert.ErrorIs(t, err, domain.ErrUnsupportedPlugin)
		assert.ErrorContains(t, err, `"odd"`)
		assert.ErrorContains(t, err, "int")
	})
	t.Run("Should consult registered adapters after the built-in ones", func(t *testing.T) {
		type custom struct{}
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"custom": func(domain.Options) (any, error) { return custom{}, nil },
		})
		l.RegisterAdapter(func(raw any) bool {
			_, ok := raw.(custom)
			return ok
		}, func(name string, _ any) *SemverPlugin {
			return &SemverPlugin{}
		})
		plugins, err := l.Load([]domain.Descriptor{{Name: "custom"}})
		require.NoError(t, err)
		assert.Equal(t, "custom", plugins[0].Name)
	})
}

func TestHandler_Validate(t *testing.T) {
	t.Run("Should return one result per plugin in order", func(t *testing.T) {
		var calls []string
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"yes":  func(domain.Options) (any, error) { return &nativeHooks{calls: &calls, valid: true}, nil },
			"no":   func(domain.Options) (any, error) { return &nativeHooks{calls: &calls, valid: false}, nil },
			"bare": func(domain.Options) (any, error) { return &SemverPlugin{}, nil },
		})
		results, err := load(t, l, "yes", "no", "bare").Validate(context.Background(), testContext(t, "1.0.0"))
		require.NoError(t, err)
		assert.Equal(t, []bool{true, false, true}, results)
	})
	t.Run("Should fail fast on non boolean results", func(t *testing.T) {
		var calls []string
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"first":  func(domain.Options) (any, error) { return &nativeHooks{calls: &calls, valid: true}, nil },
			"broken": func(domain.Options) (any, error) { return &nativeHooks{calls: &calls, valid: "yes"}, nil },
			"last":   func(domain.Options) (any, error) { return &nativeHooks{calls: &calls, valid: true}, nil },
		})
		_, err := load(t, l, "first", "broken", "last").Validate(context.Background(), testContext(t, "1.0.0"))
		require.Error(t, err)
		assert.ErrorContains(t, err, `plugin "broken"`)
		assert.ErrorContains(t, err, "string")
		assert.Len(t, calls, 2)
	})
}

func TestHandler_Publish(t *testing.T) {
	t.Run("Should skip plugins without a publish hook", func(t *testing.T) {
		var published []string
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"silent": func(domain.Options) (any, error) { return &SemverPlugin{}, nil },
			"loud": func(domain.Options) (any, error) {
				return &SemverPlugin{Publish: func(context.Context, *Context) error {
					published = append(published, "loud")
					return nil
				}}, nil
			},
		})
		require.NoError(t, load(t, l, "silent", "loud").Publish(context.Background(), testContext(t, "1.0.0")))
		assert.Equal(t, []string{"loud"}, published)
	})
	t.Run("Should stop at the first failing hook", func(t *testing.T) {
		called := false
		l := newTestLoader(afero.NewMemMapFs(), nil, map[string]Factory{
			"bad": func(domain.Options) (any, error) {
				return &SemverPlugin{Publish: func(context.Context, *Context) error { return assert.AnError }}, nil
			},
			"after": func(domain.Options) (any, error) {
				return &SemverPlugin{Publish: func(context.Context, *Context) error {
					called = true
					return nil
				}}, nil
			},
		})
		err := load(t, l, "bad", "after").Publish(context.Background(), testContext(t, "1.0.0"))
		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, `plugin "bad" publish failed`)
		assert.False(t, called)
	})
}

func TestCommandPlugin(t *testing.T) {
	definition := "name: notify\nvalidate: test -n \"$HOOK\"\npublish: ./notify.sh ${tag}\nenv:\n  VERSION: ${version}\n"
	t.Run("Should run interpolated publish commands", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, "plugins/notify.yaml", []byte(definition), 0o644))
		runner := new(mockRunner)
		runner.On("Run", mock.Anything, mock.MatchedBy(func(ec service.ExecContext) bool {
			return ec.Lookup("VERSION") == "1.2.0" && ec.Dir == "/ws" && ec.Lookup("MONORELEASE_TAG") == "lib-a-1.2.0"
		}), "sh", []string{"-c", "./notify.sh ${MONORELEASE_TAG}"}).Return(&service.CommandResult{}, nil).Once()
		h := load(t, newTestLoader(fsys, runner, nil), "plugins/notify.yaml")
		assert.Equal(t, "notify", h.Plugins()[0].Name)
		require.NoError(t, h.Publish(context.Background(), testContext(t, "1.2.0")))
		runner.AssertExpectations(t)
	})
	t.Run("Should report a failing validate command as false", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, "notify.yml", []byte(definition), 0o644))
		runner := new(mockRunner)
		runner.On("Run", mock.Anything, mock.Anything, "sh", mock.Anything).
			Return(nil, &service.CommandError{ExitCode: 1, Err: errors.New("exit status 1")})
		results, err := load(t, newTestLoader(fsys, runner, nil), "notify.yml").
			Validate(context.Background(), testContext(t, "1.2.0"))
		require.NoError(t, err)
		assert.Equal(t, []bool{false}, results)
	})
	t.Run("Should fail on malformed definitions", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, "bad.yaml", []byte("publish: [unterminated"), 0o644))
		_, err := newTestLoader(fsys, nil, nil).Load([]domain.Descriptor{{Name: "bad.yaml"}})
		assert.ErrorContains(t, err, "failed to parse plugin definition bad.yaml")
	})
}

func TestBuiltinModules(t *testing.T) {
	t.Run("Should create the GitHub release and mark it latest", func(t *testing.T) {
		gh := new(mockGithubRepository)
		gh.On("CreateRelease", mock.Anything, repository.ReleaseRequest{
			Tag:  "lib-a-1.2.0",
			Name: "lib-a-1.2.0",
			Body: "* feature",
		}).Return("https://github.com/o/r/releases/1", nil).Once()
		gh.On("MarkLatest", mock.Anything, "lib-a-1.2.0").Return(nil).Once()
		deps := BuiltinDeps{Github: gh, GithubToken: "ghp_x", Owner: "o", Repo: "r"}
		h := load(t, newTestLoader(afero.NewMemMapFs(), nil, BuiltinModules(deps)), GithubModule)
		rc := testContext(t, "1.2.0")
		results, err := h.Validate(context.Background(), rc)
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, results)
		require.NoError(t, h.Publish(context.Background(), rc))
		gh.AssertExpectations(t)
	})
	t.Run("Should not mark prereleases as latest", func(t *testing.T) {
		gh := new(mockGithubRepository)
		gh.On("CreateRelease", mock.Anything, mock.MatchedBy(func(req repository.ReleaseRequest) bool {
			return req.Prerelease
		})).Return("", nil).Once()
		h := load(t, newTestLoader(afero.NewMemMapFs(), nil, BuiltinModules(BuiltinDeps{Github: gh})), GithubModule)
		require.NoError(t, h.Publish(context.Background(), testContext(t, "2.0.0-rc.0")))
		gh.AssertNotCalled(t, "MarkLatest", mock.Anything, mock.Anything)
	})
	t.Run("Should publish to npm and add configured channels", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, "packages/a/package.json",
			[]byte(`{"name": "@scope/a", "version": "1.2.0"}`), 0o644))
		npm := new(mockNpmService)
		npm.On("Publish", mock.Anything, "packages/a", service.NpmPublishOptions{DistTag: "latest", Access: "public"}).
			Return(nil).Once()
		npm.On("AddDistTag", mock.Anything, "packages/a", "@scope/a@1.2.0", "stable").Return(nil).Once()
		deps := BuiltinDeps{
			Npm:       npm,
			Manifests: service.NewManifestBumper(fsys),
			Exec:      service.ExecContext{Env: []string{"NPM_TOKEN=secret"}},
		}
		l := newTestLoader(fsys, nil, BuiltinModules(deps))
		plugins, err := l.Load([]domain.Descriptor{{
			Kind:    domain.DescriptorConfigured,
			Name:    NpmModule,
			Options: domain.Options{"channels": []any{"stable"}},
		}})
		require.NoError(t, err)
		h := NewHandler(plugins, zap.NewNop())
		rc := testContext(t, "1.2.0")
		results, err := h.Validate(context.Background(), rc)
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, results)
		require.NoError(t, h.Publish(context.Background(), rc))
		npm.AssertExpectations(t)
	})
}
