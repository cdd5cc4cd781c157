package processor

import (
	"sync"
	"time"

	"github.com/coverlane/coverlane/internal/common/uuid"
)

// RunStatus is the lifecycle state of a processing run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusStopping  RunStatus = "stopping"
	RunStatusStopped   RunStatus = "stopped"
)

// Progress counts run outcomes. Counters only grow while a run is live.
type Progress struct {
	Claimed     int `json:"claimed"`
	Completed   int `json:"completed"`
	Eligible    int `json:"eligible"`
	NotEligible int `json:"not_eligible"`
	Failed      int `json:"failed"`
}

// Run is one processing run over a partner's pending products.
type Run struct {
	RunID         uuid.UUID  `json:"run_id"`
	PartnerID     uuid.UUID  `json:"partner_id"`
	Status        RunStatus  `json:"status"`
	Progress      Progress   `json:"progress"`
	Error         string     `json:"error,omitempty"`
	StopRequested bool       `json:"stop_requested"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Registry is an in-memory, thread-safe run registry. Runs are transient
// operational state; restarting the service forgets them, the products table
// remains the source of truth.
type Registry struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[uuid.UUID]*Run)}
}

// CreateRun registers a new pending run for a partner and returns its ID.
func (r *Registry) CreateRun(partnerID uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	runID := uuid.New()
	r.runs[runID] = &Run{
		RunID:     runID,
		PartnerID: partnerID,
		Status:    RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return runID
}

// GetRun returns a copy of the run, or false if it does not exist.
func (r *Registry) GetRun(runID uuid.UUID) (Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// ListRuns returns copies of all registered runs.
func (r *Registry) ListRuns() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		result = append(result, *run)
	}
	return result
}

// MarkRunning transitions a run to running.
func (r *Registry) MarkRunning(runID uuid.UUID) bool {
	return r.update(runID, func(run *Run) {
		now := time.Now().UTC()
		run.Status = RunStatusRunning
		run.StartedAt = &now
	})
}

// MarkCompleted transitions a run to its terminal state: stopped if a stop
// was requested, completed otherwise. A run that already failed stays failed.
func (r *Registry) MarkCompleted(runID uuid.UUID) bool {
	return r.update(runID, func(run *Run) {
		now := time.Now().UTC()
		if run.Status == RunStatusFailed {
			return
		}
		if run.StopRequested {
			run.Status = RunStatusStopped
		} else {
			run.Status = RunStatusCompleted
		}
		run.CompletedAt = &now
	})
}

// MarkFailed transitions a run to failed and records the error.
func (r *Registry) MarkFailed(runID uuid.UUID, errMsg string) bool {
	return r.update(runID, func(run *Run) {
		now := time.Now().UTC()
		run.Status = RunStatusFailed
		run.Error = errMsg
		run.CompletedAt = &now
	})
}

// RequestStop asks a run to stop after the products in flight finish.
func (r *Registry) RequestStop(runID uuid.UUID) bool {
	return r.update(runID, func(run *Run) {
		run.StopRequested = true
		if run.Status == RunStatusRunning {
			run.Status = RunStatusStopping
		}
	})
}

// ShouldStop reports whether a stop has been requested for the run.
func (r *Registry) ShouldStop(runID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	return ok && run.StopRequested
}

// UpdateProgress applies a mutation to the run's progress counters.
func (r *Registry) UpdateProgress(runID uuid.UUID, fn func(*Progress)) bool {
	return r.update(runID, func(run *Run) {
		fn(&run.Progress)
	})
}

// DeleteRun removes a run from the registry.
func (r *Registry) DeleteRun(runID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[runID]; !ok {
		return false
	}
	delete(r.runs, runID)
	return true
}

func (r *Registry) update(runID uuid.UUID, fn func(*Run)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return false
	}
	fn(run)
	run.UpdatedAt = time.Now().UTC()
	return true
}
