package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var ErrAlreadyRunning = errors.New("sync already running")

// Status is the last known state of the sync loop, served at /sync/status.
type Status struct {
	Running     bool   `json:"running"`
	LastRunAt   string `json:"lastRunAt,omitempty"`
	LastOkAt    string `json:"lastOkAt,omitempty"`
	LastError   string `json:"lastError,omitempty"`
	LastJobID   string `json:"lastJobId,omitempty"`
	LastCreated int    `json:"lastCreated"`
	LastUpdated int    `json:"lastUpdated"`
	LastRemoved int    `json:"lastRemoved"`
	LastErrors  int    `json:"lastErrors"`
}

// Tracker runs at most one sync at a time and keeps its Status.
type Tracker struct {
	busy   atomic.Bool
	status atomic.Value // Status
}

func NewTracker() *Tracker {
	t := &Tracker{}
	t.status.Store(Status{})
	return t
}

func (t *Tracker) Snapshot() Status {
	return t.status.Load().(Status)
}

// RunOnce runs r unless another run is in flight, in which case it
// returns ErrAlreadyRunning immediately.
func (t *Tracker) RunOnce(ctx context.Context, r *Runner) (Outcome, error) {
	if !t.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrAlreadyRunning
	}
	defer t.busy.Store(false)

	st := t.Snapshot()
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	t.status.Store(st)

	out, err := r.Run(ctx)

	st = t.Snapshot()
	st.Running = false
	st.LastJobID = out.Job.ID
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().Format(time.RFC3339)
		st.LastCreated, st.LastUpdated = out.Job.Created, out.Job.Updated
		st.LastRemoved, st.LastErrors = out.Job.Removed, out.Job.Errors
	}
	t.status.Store(st)
	return out, err
}
