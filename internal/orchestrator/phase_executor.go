package orchestrator

import (
	"context"

	"github.com/compozy/monorelease/internal/domain"
	"go.uber.org/zap"
)

// Phase is a single step of the release pipeline.
type Phase struct {
	Type domain.PhaseType
	// Skip marks the phase as skipped without running it.
	Skip    bool
	Execute func(ctx context.Context) error
}

// PhaseExecutor runs phases strictly in order. A failed phase stops the run;
// the side effects of completed phases are kept.
type PhaseExecutor struct {
	record *domain.ReleaseRecord
	phases []Phase
	logger *zap.Logger
}

// NewPhaseExecutor creates a PhaseExecutor tracking progress in record.
func NewPhaseExecutor(record *domain.ReleaseRecord, logger *zap.Logger) *PhaseExecutor {
	return &PhaseExecutor{record: record, logger: logger}
}

// AddPhase appends a phase.
func (e *PhaseExecutor) AddPhase(p Phase) {
	e.phases = append(e.phases, p)
	e.record.AddPhase(p.Type)
}

// Execute runs the phases. The returned error is a *domain.PhaseError naming
// the failed phase and the phases already applied.
func (e *PhaseExecutor) Execute(ctx context.Context) error {
	for _, p := range e.phases {
		e.record.MarkStarted(p.Type)
		if p.Skip {
			e.record.MarkSkipped(p.Type)
			e.logger.Debug("phase skipped", zap.String("phase", string(p.Type)))
			continue
		}
		err := ctx.Err()
		if err == nil {
			e.logger.Debug("phase started", zap.String("phase", string(p.Type)))
			err = p.Execute(ctx)
		}
		if err != nil {
			applied := e.record.CompletedPhases()
			e.record.MarkFailed(p.Type, err)
			return &domain.PhaseError{Phase: p.Type, Applied: applied, Err: err}
		}
		e.record.MarkCompleted(p.Type)
	}
	return nil
}

// Record returns the release record.
func (e *PhaseExecutor) Record() *domain.ReleaseRecord {
	return e.record
}
