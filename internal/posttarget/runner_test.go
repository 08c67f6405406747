package posttarget

import (
	"context"
	"errors"
	"testing"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/repository"
	"github.com/compozy/monorelease/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func configured(executor string, opts domain.Options) domain.Descriptor {
	return domain.Descriptor{Kind: domain.DescriptorConfigured, Name: executor, Options: opts}
}

func TestRunner_Resolve(t *testing.T) {
	registry := NewRegistry()
	registry.Register("echo", &mockExecutor{required: []string{"message"}})
	named := map[string]domain.Descriptor{
		"announce": configured("echo", domain.Options{"message": "released ${version}"}),
		"broken":   configured("echo", domain.Options{}),
		"typo":     configured("ehco", domain.Options{"message": "x"}),
	}
	runner := NewRunner(registry, named, zap.NewNop())
	t.Run("Should resolve bare names through named targets", func(t *testing.T) {
		targets, err := runner.Resolve([]domain.Descriptor{
			{Kind: domain.DescriptorBare, Name: "announce"},
			configured("echo", domain.Options{"message": "inline"}),
		})
		require.NoError(t, err)
		assert.Equal(t, []Target{
			{Name: "announce", Executor: "echo", Options: domain.Options{"message": "released ${version}"}},
			{Name: "echo", Executor: "echo", Options: domain.Options{"message": "inline"}},
		}, targets)
	})
	t.Run("Should report schema errors", func(t *testing.T) {
		for name, desc := range map[string]domain.Descriptor{
			"missing option":   {Kind: domain.DescriptorBare, Name: "broken"},
			"unknown executor": {Kind: domain.DescriptorBare, Name: "typo"},
			"unknown target":   {Kind: domain.DescriptorBare, Name: "nope"},
		} {
			_, err := runner.Resolve([]domain.Descriptor{desc})
			assert.True(t, domain.IsSchemaError(err), name)
		}
	})
}

func TestRunner_Run(t *testing.T) {
	vars := map[string]string{"version": "1.2.0", "tag": "v1.2.0", "notes": "* fix"}
	t.Run("Should stop at the failing target and name it", func(t *testing.T) {
		first := &mockExecutor{}
		failing := &mockExecutor{}
		last := &mockExecutor{}
		first.On("Run", mock.Anything, mock.Anything).Return(Result{Success: true}, nil).Once()
		failing.On("Run", mock.Anything, mock.Anything).Return(Result{Success: false}, nil).Once()
		registry := NewRegistry()
		registry.Register("first", first)
		registry.Register("failing", failing)
		registry.Register("last", last)
		runner := NewRunner(registry, nil, zap.NewNop())
		err := runner.Run(context.Background(), []Target{
			{Name: "first", Executor: "first"},
			{Name: "failing", Executor: "failing"},
			{Name: "last", Executor: "last"},
		}, vars)
		require.Error(t, err)
		assert.ErrorContains(t, err, `post-target "failing" failed`)
		first.AssertExpectations(t)
		failing.AssertExpectations(t)
		last.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	})
	t.Run("Should interpolate options before running", func(t *testing.T) {
		echo := &mockExecutor{}
		echo.On("Run", mock.Anything, domain.Options{
			"message": "released 1.2.0",
			"args":    []any{"--tag", "v1.2.0"},
			"draft":   true,
		}).Return(Result{Success: true}, nil).Once()
		registry := NewRegistry()
		registry.Register("echo", echo)
		err := NewRunner(registry, nil, zap.NewNop()).Run(context.Background(), []Target{{
			Name:     "echo",
			Executor: "echo",
			Options: domain.Options{
				"message": "released ${version}",
				"args":    []any{"--tag", "${tag}"},
				"draft":   true,
			},
		}}, vars)
		require.NoError(t, err)
		echo.AssertExpectations(t)
	})
	t.Run("Should wrap executor errors with the target name", func(t *testing.T) {
		echo := &mockExecutor{}
		echo.On("Run", mock.Anything, mock.Anything).Return(Result{}, assert.AnError)
		registry := NewRegistry()
		registry.Register("echo", echo)
		err := NewRunner(registry, nil, zap.NewNop()).Run(context.Background(), []Target{{Name: "notify", Executor: "echo"}}, vars)
		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, `post-target "notify"`)
	})
}

func TestBuiltinExecutors(t *testing.T) {
	t.Run("Should run shell commands relative to the workspace", func(t *testing.T) {
		runner := new(mockRunner)
		runner.On("Run", mock.Anything, service.ExecContext{Dir: "/ws/scripts"}, "sh", []string{"-c", "./notify.sh"}).
			Return(&service.CommandResult{Stdout: "sent\n"}, nil).Once()
		registry := NewBuiltinRegistry(Deps{Runner: runner, Exec: service.ExecContext{Dir: "/ws"}})
		shell, ok := registry.Lookup(ShellExecutor)
		require.True(t, ok)
		res, err := shell.Run(context.Background(), domain.Options{"command": "./notify.sh", "cwd": "scripts"})
		require.NoError(t, err)
		assert.Equal(t, Result{Success: true, Message: "sent"}, res)
	})
	t.Run("Should pass release variables to shell targets through the environment", func(t *testing.T) {
		notes := "* **cli:** handle $(touch /tmp/created) in args"
		runner := new(mockRunner)
		runner.On("Run", mock.Anything, mock.MatchedBy(func(ec service.ExecContext) bool {
			return ec.Dir == "/ws/packages/a" && ec.Lookup("MONORELEASE_NOTES") == notes
		}), "sh", []string{"-c", `echo "${MONORELEASE_NOTES}"`}).
			Return(&service.CommandResult{}, nil).Once()
		registry := NewBuiltinRegistry(Deps{Runner: runner, Exec: service.ExecContext{Dir: "/ws"}})
		err := NewRunner(registry, nil, zap.NewNop()).Run(context.Background(), []Target{{
			Name:     "announce",
			Executor: ShellExecutor,
			Options:  domain.Options{"command": `echo "${notes}"`, "cwd": "${projectRoot}"},
		}}, map[string]string{"notes": notes, "projectRoot": "packages/a"})
		require.NoError(t, err)
		runner.AssertExpectations(t)
	})
	t.Run("Should report failing shell commands as unsuccessful", func(t *testing.T) {
		runner := new(mockRunner)
		runner.On("Run", mock.Anything, mock.Anything, "sh", mock.Anything).
			Return(nil, &service.CommandError{Command: "sh -c false", ExitCode: 1, Err: errors.New("exit status 1")})
		shell, _ := NewBuiltinRegistry(Deps{Runner: runner}).Lookup(ShellExecutor)
		res, err := shell.Run(context.Background(), domain.Options{"command": "false"})
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
	t.Run("Should create GitHub releases from options", func(t *testing.T) {
		gh := new(mockGithubRepository)
		gh.On("CreateRelease", mock.Anything, repository.ReleaseRequest{
			Tag:        "v1.2.0",
			Name:       "Release 1.2.0",
			Body:       "* fix",
			Prerelease: true,
		}).Return("https://github.com/o/r/releases/tag/v1.2.0", nil).Once()
		release, _ := NewBuiltinRegistry(Deps{Github: gh}).Lookup(GithubReleaseExecutor)
		assert.Equal(t, []string{"tag"}, release.Required())
		res, err := release.Run(context.Background(), domain.Options{
			"tag":        "v1.2.0",
			"title":      "Release 1.2.0",
			"notes":      "* fix",
			"prerelease": "true",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://github.com/o/r/releases/tag/v1.2.0", res.Message)
	})
}
