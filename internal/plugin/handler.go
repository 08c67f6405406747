package plugin

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Handler runs the hooks of loaded plugins in declared order.
type Handler struct {
	plugins []*SemverPlugin
	logger  *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(plugins []*SemverPlugin, logger *zap.Logger) *Handler {
	return &Handler{plugins: plugins, logger: logger}
}

// Plugins returns the loaded plugins.
func (h *Handler) Plugins() []*SemverPlugin {
	return h.plugins
}

// Validate returns one result per plugin. A hook returning anything but a
// bool stops the run; later hooks are not invoked. A plugin without a
// validate hook counts as valid.
func (h *Handler) Validate(ctx context.Context, rc *Context) ([]bool, error) {
	results := make([]bool, 0, len(h.plugins))
	for _, p := range h.plugins {
		if p.Validate == nil {
			results = append(results, true)
			continue
		}
		v, err := p.Validate(ctx, rc)
		if err != nil {
			return results, fmt.Errorf("plugin %q validate failed: %w", p.Name, err)
		}
		ok, isBool := v.(bool)
		if !isBool {
			return results, fmt.Errorf("plugin %q validate hook returned %T, expected bool", p.Name, v)
		}
		h.logger.Debug("plugin validated", zap.String("plugin", p.Name), zap.Bool("ok", ok))
		results = append(results, ok)
	}
	return results, nil
}

// Prepare runs every prepare hook.
func (h *Handler) Prepare(ctx context.Context, rc *Context) error {
	return h.run(ctx, rc, "prepare", func(p *SemverPlugin) HookFunc { return p.Prepare })
}

// Publish runs every publish hook.
func (h *Handler) Publish(ctx context.Context, rc *Context) error {
	return h.run(ctx, rc, "publish", func(p *SemverPlugin) HookFunc { return p.Publish })
}

func (h *Handler) run(ctx context.Context, rc *Context, stage string, hook func(*SemverPlugin) HookFunc) error {
	for _, p := range h.plugins {
		fn := hook(p)
		if fn == nil {
			continue
		}
		h.logger.Info("running plugin hook", zap.String("plugin", p.Name), zap.String("hook", stage))
		if err := fn(ctx, rc); err != nil {
			return fmt.Errorf("plugin %q %s failed: %w", p.Name, stage, err)
		}
	}
	return nil
}
