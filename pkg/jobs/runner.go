package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/leaseworks/lade/pkg/appctx"
	"github.com/leaseworks/lade/pkg/archive/workflow"
	"github.com/leaseworks/lade/pkg/errtypes"
	"github.com/leaseworks/lade/pkg/events"
	"github.com/leaseworks/lade/pkg/userctx"
)

// Discoverer is the slice of the workflow the runner drives.
type Discoverer interface {
	DiscoverFull(ctx context.Context, leaseID, userID string) (*workflow.Result, error)
}

// Options tune the runner.
type Options struct {
	Group          string        // consumer group, one pool per group
	Workers        int           // parallel workers, default 4
	MaxAttempts    int           // attempts including the first, default 5
	InitialBackoff time.Duration // first retry delay, default 500ms (jittered)
	BackoffCap     time.Duration // retry delay ceiling, default 10m
	SoftLimit      time.Duration // per-attempt graceful deadline, default 90s
	HardLimit      time.Duration // per-attempt kill deadline, default 120s
}

func (o *Options) applyDefaults() {
	if o.Group == "" {
		o.Group = "lade-workers"
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 10 * time.Minute
	}
	if o.SoftLimit <= 0 {
		o.SoftLimit = 90 * time.Second
	}
	if o.HardLimit <= 0 {
		o.HardLimit = 120 * time.Second
	}
}

// Runner consumes jobs and executes the workflow with retry, backoff and
// per-attempt time limits. Within a job execution is strictly sequential.
type Runner struct {
	stream events.Consumer
	wf     Discoverer
	log    *zerolog.Logger
	opts   Options
}

// NewRunner returns a Runner.
func NewRunner(stream events.Consumer, wf Discoverer, log *zerolog.Logger, opts Options) *Runner {
	opts.applyDefaults()
	return &Runner{stream: stream, wf: wf, log: log, opts: opts}
}

// Run consumes until ctx is canceled or the stream closes. Workers share
// one consumer group, so each job lands on exactly one of them.
func (r *Runner) Run(ctx context.Context) error {
	ch, err := events.Consume(r.stream, r.opts.Group, WorkflowEnqueued{})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.opts.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ev, ok := <-ch:
					if !ok {
						return nil
					}
					job, ok := ev.(WorkflowEnqueued)
					if !ok {
						continue
					}
					r.process(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

// process drives one job through the state machine:
//
//	QUEUED → RUNNING → (DONE | FAILED_RETRYABLE → QUEUED* | FAILED_TERMINAL | TIMED_OUT → QUEUED*)
//
// up to MaxAttempts, then FAILED_TERMINAL.
func (r *Runner) process(ctx context.Context, job WorkflowEnqueued) {
	log := r.log.With().
		Str("job_id", job.JobID).
		Str("task", job.Task).
		Str("lease_id", job.LeaseID).
		Logger()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialBackoff
	b.MaxInterval = r.opts.BackoffCap
	b.MaxElapsedTime = 0

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		alog := log.With().Int("attempt", attempt).Logger()
		alog.Debug().Str("state", string(StateRunning)).Msg("job attempt started")

		err := r.attempt(ctx, &alog, job)
		if err == nil {
			alog.Info().Str("state", string(StateDone)).Msg("job done")
			return
		}
		if ctx.Err() != nil {
			// shutdown, not a job failure; the dedup window expires and a
			// later write re-triggers discovery
			alog.Warn().Msg("job abandoned, runner stopping")
			return
		}

		state := StateFailedRetry
		if timedOut(err) {
			state = StateTimedOut
		}
		if !retryable(err) {
			alog.Error().Err(err).Str("state", string(StateFailedTerminal)).Str("kind", kind(err)).Msg("job failed terminally")
			return
		}
		if attempt == r.opts.MaxAttempts {
			alog.Error().Err(err).Str("state", string(StateFailedTerminal)).Str("kind", kind(err)).Msg("job failed, attempts exhausted")
			return
		}

		wait := b.NextBackOff()
		alog.Warn().Err(err).Str("state", string(state)).Dur("backoff", wait).Str("kind", kind(err)).Msg("job attempt failed, requeueing")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// attempt runs the workflow once. The hard limit is the context deadline
// and terminates in-flight cloud calls; the soft limit travels as an
// advisory deadline the workflow checks at its phase boundaries to abandon
// gracefully without cutting a call off mid-flight.
func (r *Runner) attempt(ctx context.Context, log *zerolog.Logger, job WorkflowEnqueued) error {
	hardCtx, cancel := context.WithTimeout(ctx, r.opts.HardLimit)
	defer cancel()

	wctx := appctx.WithLogger(hardCtx, log)
	wctx = appctx.WithSoftDeadline(wctx, time.Now().Add(r.opts.SoftLimit))
	wctx = userctx.ContextSetUser(wctx, &userctx.User{ID: job.UserID})

	_, err := r.wf.DiscoverFull(wctx, job.LeaseID, job.UserID)
	return err
}

func retryable(err error) bool {
	return errtypes.Retryable(err) || timedOut(err)
}

func timedOut(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// kind maps an error to the taxonomy name operators grep for.
func kind(err error) string {
	switch {
	case timedOut(err):
		return "Timeout"
	case errtypes.Retryable(err):
		return "CloudTransient"
	default:
		switch pkgerrors.Cause(err).(type) {
		case errtypes.IsCloudAuth:
			return "CloudAuth"
		case errtypes.IsBasePathMissing:
			return "BasePathMissing"
		case errtypes.IsConfigDisabled:
			return "ConfigDisabled"
		case errtypes.IsConfigMissing:
			return "ConfigMissing"
		case errtypes.IsNotFound:
			return "NotFound"
		default:
			return "LocalProgrammingError"
		}
	}
}
