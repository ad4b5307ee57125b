package sync

import (
	"sync/atomic"
)

// ActivityTracker counts compare tasks that have been created but not yet
// finished. It starts at 1 for the root task. Every Push is matched by
// exactly one Pop, so the counter reaches zero once and only once per run.
type ActivityTracker struct {
	active atomic.Int64
}

// NewActivityTracker creates a tracker accounting for the root task
func NewActivityTracker() *ActivityTracker {
	t := &ActivityTracker{}
	t.active.Store(1)
	return t
}

// Push records a compare task that will eventually be enqueued
func (t *ActivityTracker) Push() {
	t.active.Add(1)
}

// Pop records a finished (or retired) compare task.
// It returns true only for the call that moved the counter from 1 to 0;
// that caller is responsible for shutting the pipeline down.
func (t *ActivityTracker) Pop() bool {
	return t.active.Add(-1) == 0
}

// Pending returns the number of outstanding compare tasks
func (t *ActivityTracker) Pending() int64 {
	return t.active.Load()
}
