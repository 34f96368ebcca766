package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RunState is the lifecycle state of a simulation started over a connection.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunCanceled  RunState = "canceled"
)

// TrackedRun holds the state of one connection's simulation run.
type TrackedRun struct {
	RunID     string
	ConnID    string
	Scenario  string
	State     RunState
	StartedAt time.Time
	EndedAt   time.Time

	cancel context.CancelFunc
}

// RunTracker records the runs started over WebSocket. A connection has at
// most one running simulation at a time.
type RunTracker struct {
	mu     sync.RWMutex
	active map[string]*TrackedRun // connID -> running run
	done   int
	logger *slog.Logger
}

// NewRunTracker creates an empty tracker.
func NewRunTracker(logger *slog.Logger) *RunTracker {
	return &RunTracker{
		active: make(map[string]*TrackedRun),
		logger: logger,
	}
}

// Start registers a run for connID. It returns false if the connection
// already has a run in progress.
func (t *RunTracker) Start(connID, runID, scenario string, cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, busy := t.active[connID]; busy {
		return false
	}
	t.active[connID] = &TrackedRun{
		RunID:     runID,
		ConnID:    connID,
		Scenario:  scenario,
		State:     RunRunning,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	t.logger.Debug("run tracked",
		slog.String("conn_id", connID),
		slog.String("run_id", runID),
	)
	return true
}

// Finish marks the connection's run as ended with the given state.
func (t *RunTracker) Finish(connID string, state RunState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.active[connID]
	if !ok {
		return
	}
	r.State = state
	r.EndedAt = time.Now()
	delete(t.active, connID)
	t.done++

	t.logger.Debug("run finished",
		slog.String("conn_id", connID),
		slog.String("run_id", r.RunID),
		slog.String("state", string(state)),
		slog.Duration("duration", r.EndedAt.Sub(r.StartedAt)),
	)
}

// Cancel cancels the connection's running simulation, if any.
func (t *RunTracker) Cancel(connID string) bool {
	t.mu.RLock()
	r, ok := t.active[connID]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	r.cancel()
	return true
}

// Get returns a copy of the connection's running simulation.
func (t *RunTracker) Get(connID string) (TrackedRun, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.active[connID]
	if !ok {
		return TrackedRun{}, false
	}
	return *r, true
}

// Active returns the number of runs in progress.
func (t *RunTracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// Completed returns the number of runs that ended, canceled ones included.
func (t *RunTracker) Completed() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done
}
