package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leaseworks/lade/pkg/events"
)

// DefaultDedupWindow is the TTL within which duplicate enqueues of the same
// (task, lease) pair collapse to one execution.
const DefaultDedupWindow = 120 * time.Second

// Enqueuer publishes jobs after winning the dedup window.
type Enqueuer struct {
	stream events.Publisher
	dedup  Dedup
	window time.Duration
	log    *zerolog.Logger
}

// NewEnqueuer returns an Enqueuer. A window of 0 means DefaultDedupWindow.
func NewEnqueuer(stream events.Publisher, dedup Dedup, window time.Duration, log *zerolog.Logger) *Enqueuer {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Enqueuer{stream: stream, dedup: dedup, window: window, log: log}
}

// Enqueue publishes one job for (task, lease) unless another enqueue holds
// the dedup window. It reports whether a job was actually published.
func (e *Enqueuer) Enqueue(ctx context.Context, task, leaseID, userID string) (bool, error) {
	key := DedupKey(task, leaseID)
	ok, err := e.dedup.TryAcquire(ctx, key, e.window)
	if err != nil {
		return false, err
	}
	if !ok {
		e.log.Debug().Str("task", task).Str("lease", leaseID).Msg("enqueue skipped, dedup window held")
		return false, nil
	}

	job := WorkflowEnqueued{
		JobID:      uuid.New().String(),
		Task:       task,
		LeaseID:    leaseID,
		UserID:     userID,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := events.Publish(e.stream, job); err != nil {
		// leave the dedup key to expire; a failed publish should not open
		// the window for a tight re-trigger loop
		return false, err
	}
	e.log.Info().Str("job_id", job.JobID).Str("task", task).Str("lease", leaseID).Msg("job enqueued")
	return true, nil
}
