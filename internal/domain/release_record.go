package domain

import (
	"time"
)

// ReleaseState is the state of one release attempt.
type ReleaseState string

const (
	ReleaseStateIdle             ReleaseState = "idle"
	ReleaseStateComputingVersion ReleaseState = "computing_version"
	ReleaseStateNoRelease        ReleaseState = "no_release"
	ReleaseStateReleasing        ReleaseState = "releasing"
	ReleaseStatePublishing       ReleaseState = "publishing"
	ReleaseStateDone             ReleaseState = "done"
	ReleaseStateFailed           ReleaseState = "failed"
)

// PhaseStatus represents the status of an individual phase
type PhaseStatus string

const (
	PhaseStatusPending   PhaseStatus = "pending"
	PhaseStatusRunning   PhaseStatus = "running"
	PhaseStatusCompleted PhaseStatus = "completed"
	PhaseStatusSkipped   PhaseStatus = "skipped"
	PhaseStatusFailed    PhaseStatus = "failed"
)

// PhaseType identifies a release phase
type PhaseType string

const (
	PhaseValidatePlugins PhaseType = "validate_plugins"
	PhasePreparePlugins  PhaseType = "prepare_plugins"
	PhaseChangelog       PhaseType = "changelog"
	PhaseStage           PhaseType = "stage"
	PhaseCommitAndTag    PhaseType = "commit_and_tag"
	PhasePush            PhaseType = "push"
	PhasePostTargets     PhaseType = "post_targets"
	PhasePublish         PhaseType = "publish"
)

// ReleaseRecord tracks the progress of one release attempt in memory.
type ReleaseRecord struct {
	RunID     string
	StartedAt time.Time
	UpdatedAt time.Time
	Project   string
	Version   string
	State     ReleaseState
	Phases    []PhaseRecord
	Error     string
}

// PhaseRecord represents a single phase in the release
type PhaseRecord struct {
	Type        PhaseType
	Status      PhaseStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// NewReleaseRecord creates a new release record
func NewReleaseRecord(runID, project string) *ReleaseRecord {
	now := time.Now()
	return &ReleaseRecord{
		RunID:     runID,
		StartedAt: now,
		UpdatedAt: now,
		Project:   project,
		Phases:    []PhaseRecord{},
		State:     ReleaseStateIdle,
	}
}

// Transition moves the record to a new state.
func (r *ReleaseRecord) Transition(state ReleaseState) {
	r.State = state
	r.UpdatedAt = time.Now()
}

// AddPhase registers a pending phase.
func (r *ReleaseRecord) AddPhase(t PhaseType) {
	r.Phases = append(r.Phases, PhaseRecord{Type: t, Status: PhaseStatusPending})
	r.UpdatedAt = time.Now()
}

// MarkStarted marks a pending phase as running
func (r *ReleaseRecord) MarkStarted(t PhaseType) {
	if p := r.find(t, PhaseStatusPending); p != nil {
		p.Status = PhaseStatusRunning
		p.StartedAt = time.Now()
		r.UpdatedAt = p.StartedAt
	}
}

// MarkCompleted marks a running phase as completed
func (r *ReleaseRecord) MarkCompleted(t PhaseType) {
	r.finish(t, PhaseStatusCompleted, "")
}

// MarkSkipped marks a running phase as skipped
func (r *ReleaseRecord) MarkSkipped(t PhaseType) {
	r.finish(t, PhaseStatusSkipped, "")
}

// MarkFailed marks a running phase as failed and the whole record as failed
func (r *ReleaseRecord) MarkFailed(t PhaseType, err error) {
	r.finish(t, PhaseStatusFailed, err.Error())
	r.State = ReleaseStateFailed
	r.Error = err.Error()
}

// CompletedPhases returns the phases whose side effects landed, in order.
func (r *ReleaseRecord) CompletedPhases() []PhaseType {
	var out []PhaseType
	for _, p := range r.Phases {
		if p.Status == PhaseStatusCompleted {
			out = append(out, p.Type)
		}
	}
	return out
}

// Phase returns the record of a phase type, nil if it was never added.
func (r *ReleaseRecord) Phase(t PhaseType) *PhaseRecord {
	for i := range r.Phases {
		if r.Phases[i].Type == t {
			return &r.Phases[i]
		}
	}
	return nil
}

func (r *ReleaseRecord) finish(t PhaseType, status PhaseStatus, errMsg string) {
	p := r.find(t, PhaseStatusRunning)
	if p == nil {
		return
	}
	now := time.Now()
	p.Status = status
	p.CompletedAt = &now
	p.Error = errMsg
	r.UpdatedAt = now
}

func (r *ReleaseRecord) find(t PhaseType, status PhaseStatus) *PhaseRecord {
	for i := range r.Phases {
		if r.Phases[i].Type == t && r.Phases[i].Status == status {
			return &r.Phases[i]
		}
	}
	return nil
}
