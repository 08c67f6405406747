package plugin

import (
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/service"
	"github.com/spf13/afero"
)

// Factory builds a plugin module from its descriptor options.
type Factory func(options domain.Options) (any, error)

type adapter struct {
	matches func(raw any) bool
	adapt   func(name string, raw any) *SemverPlugin
}

// Loader resolves plugin descriptors to SemverPlugins. Modules are looked up
// by name; names ending in .yaml or .yml load a CommandDefinition from the
// workspace. Each resolved module goes through the adapter list and the first
// matching adapter wins.
type Loader struct {
	modules  map[string]Factory
	fs       afero.Fs
	adapters []adapter
}

// NewLoader creates a Loader knowing modules.
func NewLoader(fsys afero.Fs, runner service.CommandRunner, ec service.ExecContext, modules map[string]Factory) *Loader {
	commands := &commandAdapter{runner: runner, exec: ec}
	l := &Loader{modules: modules, fs: fsys}
	l.RegisterAdapter(func(raw any) bool {
		_, ok := raw.(*SemverPlugin)
		return ok
	}, func(_ string, raw any) *SemverPlugin {
		return raw.(*SemverPlugin)
	})
	l.RegisterAdapter(isNative, adaptNative)
	l.RegisterAdapter(func(raw any) bool {
		_, ok := raw.(*CommandDefinition)
		return ok
	}, commands.adapt)
	return l
}

// RegisterAdapter appends an adapter tried after the registered ones.
func (l *Loader) RegisterAdapter(matches func(raw any) bool, adapt func(name string, raw any) *SemverPlugin) {
	l.adapters = append(l.adapters, adapter{matches: matches, adapt: adapt})
}

// Load resolves descriptors in declared order.
func (l *Loader) Load(descriptors []domain.Descriptor) ([]*SemverPlugin, error) {
	plugins := make([]*SemverPlugin, 0, len(descriptors))
	for _, d := range descriptors {
		raw, err := l.resolve(d)
		if err != nil {
			return nil, err
		}
		p, err := l.adapt(d.Name, raw)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

func (l *Loader) resolve(d domain.Descriptor) (any, error) {
	if isCommandFile(d.Name) {
		return loadCommandDefinition(l.fs, d.Name)
	}
	factory, ok := l.modules[d.Name]
	if !ok {
		return nil, fmt.Errorf("%w %q: no such module", domain.ErrUnsupportedPlugin, d.Name)
	}
	raw, err := factory(d.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin %q: %w", d.Name, err)
	}
	return raw, nil
}

func (l *Loader) adapt(name string, raw any) (*SemverPlugin, error) {
	for _, a := range l.adapters {
		if a.matches(raw) {
			p := a.adapt(name, raw)
			if p.Name == "" {
				p.Name = name
			}
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w %q: unrecognized shape %T", domain.ErrUnsupportedPlugin, name, raw)
}
