package plugin

import (
	"context"

	"github.com/compozy/monorelease/internal/domain"
)

// Context is the release data handed to every hook.
type Context struct {
	Release *domain.Release
	Project domain.ProjectRef
	// Notes is the prepared body of the release.
	Notes  string
	DryRun bool
}

// Vars exposes the context as interpolation variables.
func (c *Context) Vars() map[string]string {
	vars := map[string]string{
		"projectName": c.Project.Name,
		"projectRoot": c.Project.RootPath,
		"notes":       c.Notes,
	}
	if c.Release != nil && c.Release.Version != nil {
		vars["version"] = c.Release.Version.Raw()
		vars["tag"] = c.Release.TagName()
		vars["previousTag"] = c.Release.PreviousTagName()
	}
	return vars
}

// ValidateFunc reports whether a plugin's conditions are met. A well-formed
// hook returns a bool.
type ValidateFunc func(ctx context.Context, rc *Context) (any, error)

// HookFunc is a prepare or publish hook.
type HookFunc func(ctx context.Context, rc *Context) error

// SemverPlugin is the uniform shape every loaded plugin is adapted to. A nil
// hook is a no-op.
type SemverPlugin struct {
	Name     string
	Validate ValidateFunc
	Prepare  HookFunc
	Publish  HookFunc
}

// ConditionVerifier is the native validate hook.
type ConditionVerifier interface {
	VerifyConditions(ctx context.Context, rc *Context) (any, error)
}

// Publisher is the native publish hook.
type Publisher interface {
	Publish(ctx context.Context, rc *Context) error
}

// ChannelAdder is the native hook that promotes a published release.
type ChannelAdder interface {
	AddChannel(ctx context.Context, rc *Context) error
}

// Preparer is the native prepare hook.
type Preparer interface {
	Prepare(ctx context.Context, rc *Context) error
}

// adaptNative wraps native hooks. Publish runs the native publish hook and
// then AddChannel.
func adaptNative(name string, raw any) *SemverPlugin {
	p := &SemverPlugin{Name: name}
	if v, ok := raw.(ConditionVerifier); ok {
		p.Validate = v.VerifyConditions
	}
	if v, ok := raw.(Preparer); ok {
		p.Prepare = v.Prepare
	}
	publisher, canPublish := raw.(Publisher)
	adder, canAdd := raw.(ChannelAdder)
	if canPublish || canAdd {
		p.Publish = func(ctx context.Context, rc *Context) error {
			if canPublish {
				if err := publisher.Publish(ctx, rc); err != nil {
					return err
				}
			}
			if canAdd {
				return adder.AddChannel(ctx, rc)
			}
			return nil
		}
	}
	return p
}

func isNative(raw any) bool {
	switch raw.(type) {
	case ConditionVerifier, Publisher, ChannelAdder, Preparer:
		return true
	}
	return false
}
