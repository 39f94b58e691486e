// Package hooks adapts data-layer write events into discovery jobs. The
// hook fires after the lease transaction commits, on the request side, where
// the acting user is still in context.
package hooks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/leaseworks/lade/pkg/archive"
	"github.com/leaseworks/lade/pkg/jobs"
	"github.com/leaseworks/lade/pkg/userctx"
)

// LeaseHook enqueues discovery when a lease is created or updated.
type LeaseHook struct {
	enq *jobs.Enqueuer
	log *zerolog.Logger
}

// NewLeaseHook returns a LeaseHook.
func NewLeaseHook(enq *jobs.Enqueuer, log *zerolog.Logger) *LeaseHook {
	return &LeaseHook{enq: enq, log: log}
}

// LeaseWritten is called after a lease write commits with the set of
// changed fields (empty means a create). It never returns an error into the
// request path: enqueue failures are logged and the next write re-triggers.
//
// Two quiet skips guard the hot path: writes touching only the
// task-managed fields must not re-enqueue (the worker's own persistence
// would loop forever), and writes without a user in context cannot be
// processed because cloud auth needs one.
func (h *LeaseHook) LeaseWritten(ctx context.Context, leaseID string, changedFields []string) {
	if onlyTaskManaged(changedFields) {
		h.log.Debug().Str("lease", leaseID).Msg("skipping enqueue, only task-managed fields changed")
		return
	}

	user, ok := userctx.ContextGetUser(ctx)
	if !ok {
		h.log.Debug().Str("lease", leaseID).Msg("skipping enqueue, no user in context")
		return
	}

	if _, err := h.enq.Enqueue(ctx, jobs.TaskFullDiscovery, leaseID, user.ID); err != nil {
		h.log.Error().Err(err).Str("lease", leaseID).Msg("failed to enqueue discovery")
	}
}

// onlyTaskManaged reports whether fields is non-empty and a subset of the
// task-managed set.
func onlyTaskManaged(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	managed := map[string]struct{}{}
	for _, f := range archive.TaskManagedFields {
		managed[f] = struct{}{}
	}
	for _, f := range fields {
		if _, ok := managed[f]; !ok {
			return false
		}
	}
	return true
}
