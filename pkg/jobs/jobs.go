// Package jobs turns lease write events into bounded, deduplicated,
// retried executions of the discovery workflow.
package jobs

import (
	"encoding/json"
	"time"
)

// TaskFullDiscovery names the full runsheet discovery task. Dedup keys are
// task-scoped, so other tasks against the same lease do not collide.
const TaskFullDiscovery = "runsheet_full_discovery"

// WorkflowEnqueued is the job envelope traveling through the queue.
type WorkflowEnqueued struct {
	JobID      string
	Task       string
	LeaseID    string
	UserID     string
	EnqueuedAt time.Time
}

// Unmarshal to fulfill the events unmarshaller interface.
func (WorkflowEnqueued) Unmarshal(v []byte) (interface{}, error) {
	e := WorkflowEnqueued{}
	err := json.Unmarshal(v, &e)
	return e, err
}

// State tracks a job through its lifecycle, for logs and tests.
type State string

// The job states. QUEUED and RUNNING are transient; DONE and
// FAILED_TERMINAL are final.
const (
	StateQueued         State = "QUEUED"
	StateRunning        State = "RUNNING"
	StateDone           State = "DONE"
	StateFailedRetry    State = "FAILED_RETRYABLE"
	StateFailedTerminal State = "FAILED_TERMINAL"
	StateTimedOut       State = "TIMED_OUT"
)
