package profiles

import "sync"

// RunSnapshot copies the observable state of a fetch run.
type RunSnapshot struct {
	Total     int
	Completed int
	Paused    bool
	ByStatus  map[Status]int
}

// RunTracker records per-status progress of a fetch run. The engine itself is
// sequential; the mutex exists so log tickers and HTTP observers can read a
// consistent snapshot while a run is in flight.
type RunTracker struct {
	mutex     sync.Mutex
	total     int
	completed int
	paused    bool
	byStatus  map[Status]int
}

// NewRunTracker constructs a tracker for a run covering total usernames.
func NewRunTracker(total int) *RunTracker {
	return &RunTracker{total: total, byStatus: make(map[Status]int)}
}

// Record registers the outcome of one fetch attempt.
func (tracker *RunTracker) Record(status Status) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()

	tracker.completed++
	if tracker.completed > tracker.total {
		tracker.completed = tracker.total
	}
	tracker.byStatus[status]++
}

// SetPaused flags whether the run is inside a circuit-breaker cooldown.
func (tracker *RunTracker) SetPaused(paused bool) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	tracker.paused = paused
}

// Snapshot returns a copy of the current run state.
func (tracker *RunTracker) Snapshot() RunSnapshot {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()

	clonedByStatus := make(map[Status]int, len(tracker.byStatus))
	for status, count := range tracker.byStatus {
		clonedByStatus[status] = count
	}
	return RunSnapshot{
		Total:     tracker.total,
		Completed: tracker.completed,
		Paused:    tracker.paused,
		ByStatus:  clonedByStatus,
	}
}
