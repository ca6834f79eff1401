package orchestrator

import (
	"context"
	"sync"

	"github.com/cuongbtq/assignment-orchestrator/internal/domain"
)

// Runs tracks the automation run currently active for each job in this
// process. At most one run per job is admitted.
type Runs struct {
	mu     sync.Mutex
	active map[string]context.CancelCauseFunc
}

// NewRuns creates an empty registry
func NewRuns() *Runs {
	return &Runs{active: make(map[string]context.CancelCauseFunc)}
}

// Begin admits a run for jobID. The returned context is cancelled with
// domain.ErrRunStopped by Stop and with the parent's cause otherwise. The
// release func must be called when the run ends. ok is false when a run is
// already active.
func (r *Runs) Begin(parent context.Context, jobID string) (ctx context.Context, release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[jobID]; exists {
		return nil, nil, false
	}

	ctx, cancel := context.WithCancelCause(parent)
	r.active[jobID] = cancel

	release = func() {
		r.mu.Lock()
		delete(r.active, jobID)
		r.mu.Unlock()
		cancel(nil)
	}
	return ctx, release, true
}

// Stop cancels the job's active run and reports whether one existed
func (r *Runs) Stop(jobID string) bool {
	r.mu.Lock()
	cancel, ok := r.active[jobID]
	r.mu.Unlock()

	if ok {
		cancel(domain.ErrRunStopped)
	}
	return ok
}

// Active reports whether a run is in progress for the job
func (r *Runs) Active(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[jobID]
	return ok
}

// Len returns the number of active runs
func (r *Runs) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
