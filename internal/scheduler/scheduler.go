// Package scheduler provides deferred task execution: run a logical job
// at or after a point in time, deduplicated by key.  Delivery is
// at-least-once and ordering across keys is not guaranteed, so task
// handlers must re-check current state before acting.
package scheduler

import (
	"context"
	"encoding/json"
	"time"
)

// Task is one deferred job.  Key deduplicates: at most one pending task
// per key exists at a time, and scheduling an existing key replaces its
// run time and payload.
type Task struct {
	Kind    string          `json:"kind"`    // selects the registered handler
	Key     string          `json:"key"`     // dedupe key, unique among pending tasks
	RunAt   time.Time       `json:"run_at"`  // earliest execution time; past means run now
	Payload json.RawMessage `json:"payload"` // handler-specific JSON payload
}

// Scheduler enqueues deferred tasks.  Implementations must honor the
// dedupe-by-key replacement semantics described on Task.
type Scheduler interface {
	Schedule(ctx context.Context, t Task) error
}

// Handler processes one due task.  Returning an error requeues the task
// for a later attempt; returning nil completes it.
type Handler func(ctx context.Context, t Task) error
