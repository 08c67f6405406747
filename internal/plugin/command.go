package plugin

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/compozy/monorelease/internal/service"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// CommandDefinition is a declarative plugin: each hook is a shell command
// interpolated with the release variables.
type CommandDefinition struct {
	Name     string            `yaml:"name"`
	Validate string            `yaml:"validate"`
	Prepare  string            `yaml:"prepare"`
	Publish  string            `yaml:"publish"`
	Env      map[string]string `yaml:"env"`
}

func isCommandFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func loadCommandDefinition(fsys afero.Fs, file string) (*CommandDefinition, error) {
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin definition %s: %w", file, err)
	}
	var def CommandDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse plugin definition %s: %w", file, err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(path.Base(file), path.Ext(file))
	}
	return &def, nil
}

type commandAdapter struct {
	runner service.CommandRunner
	exec   service.ExecContext
}

// adapt runs hooks through "sh -c". A validate command that exits non-zero
// reports false rather than an error.
func (a *commandAdapter) adapt(name string, raw any) *SemverPlugin {
	def := raw.(*CommandDefinition)
	p := &SemverPlugin{Name: name}
	if def.Validate != "" {
		p.Validate = func(ctx context.Context, rc *Context) (any, error) {
			err := a.run(ctx, def, def.Validate, rc)
			var cmdErr *service.CommandError
			if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
				return false, nil
			}
			if err != nil {
				return nil, err
			}
			return true, nil
		}
	}
	if def.Prepare != "" {
		p.Prepare = func(ctx context.Context, rc *Context) error {
			return a.run(ctx, def, def.Prepare, rc)
		}
	}
	if def.Publish != "" {
		p.Publish = func(ctx context.Context, rc *Context) error {
			return a.run(ctx, def, def.Publish, rc)
		}
	}
	return p
}

func (a *commandAdapter) run(ctx context.Context, def *CommandDefinition, command string, rc *Context) error {
	vars := rc.Vars()
	ec := a.exec
	for k, v := range def.Env {
		ec = ec.WithEnv(k + "=" + service.Interpolate(v, vars))
	}
	command, env := service.InterpolateShell(command, vars)
	_, err := a.runner.Run(ctx, ec.WithEnv(env...), "sh", "-c", command)
	return err
}
