package posttarget

import (
	"context"
	"fmt"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/compozy/monorelease/internal/service"
	"go.uber.org/zap"
)

// Target is a resolved post-target.
type Target struct {
	Name     string
	Executor string
	Options  domain.Options
}

// Runner resolves post-target descriptors and runs them one after another.
type Runner struct {
	registry *Registry
	// named are the targets defined in configuration, referenced by bare
	// descriptors.
	named  map[string]domain.Descriptor
	logger *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(registry *Registry, named map[string]domain.Descriptor, logger *zap.Logger) *Runner {
	return &Runner{registry: registry, named: named, logger: logger}
}

// Resolve turns descriptors into targets and checks them against their
// executor's required options. Failures are *domain.SchemaError.
func (r *Runner) Resolve(descriptors []domain.Descriptor) ([]Target, error) {
	targets := make([]Target, 0, len(descriptors))
	for _, d := range descriptors {
		t := Target{Name: d.Name, Executor: d.Name, Options: d.Options}
		if d.Kind == domain.DescriptorBare {
			def, ok := r.named[d.Name]
			if !ok {
				return nil, &domain.SchemaError{Target: d.Name, Reason: "no target with this name is defined"}
			}
			t.Executor = def.Name
			t.Options = def.Options
		}
		executor, ok := r.registry.Lookup(t.Executor)
		if !ok {
			return nil, &domain.SchemaError{Target: t.Name, Reason: fmt.Sprintf("unknown executor %q", t.Executor)}
		}
		for _, key := range executor.Required() {
			if !t.Options.Has(key) {
				return nil, &domain.SchemaError{Target: t.Name, Reason: fmt.Sprintf("missing required option %q", key)}
			}
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Run executes targets in order with their options interpolated from vars.
// The first failure aborts the remaining targets and names the failing one.
func (r *Runner) Run(ctx context.Context, targets []Target, vars map[string]string) error {
	for _, t := range targets {
		executor, ok := r.registry.Lookup(t.Executor)
		if !ok {
			return &domain.SchemaError{Target: t.Name, Reason: fmt.Sprintf("unknown executor %q", t.Executor)}
		}
		r.logger.Info("running post-target", zap.String("target", t.Name), zap.String("executor", t.Executor))
		var res Result
		var err error
		if ve, ok := executor.(VarsExecutor); ok {
			res, err = ve.RunWithVars(ctx, t.Options, vars)
		} else {
			opts, _ := service.InterpolateValue(map[string]any(t.Options), vars).(map[string]any)
			res, err = executor.Run(ctx, opts)
		}
		if err != nil {
			return fmt.Errorf("post-target %q failed: %w", t.Name, err)
		}
		if !res.Success {
			if res.Message != "" {
				return fmt.Errorf("post-target %q failed: %s", t.Name, res.Message)
			}
			return fmt.Errorf("post-target %q failed", t.Name)
		}
		r.logger.Info("post-target finished", zap.String("target", t.Name), zap.String("output", res.Message))
	}
	return nil
}
