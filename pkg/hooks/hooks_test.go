package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseworks/lade/pkg/events"
	"github.com/leaseworks/lade/pkg/events/stream"
	"github.com/leaseworks/lade/pkg/jobs"
	"github.com/leaseworks/lade/pkg/userctx"
)

type hookFixture struct {
	hook *LeaseHook
	out  <-chan interface{}
}

func newHookFixture(t *testing.T) (*hookFixture, func()) {
	t.Helper()
	log := zerolog.Nop()
	ch, closer := stream.Local()
	out, err := events.Consume(ch, "test", jobs.WorkflowEnqueued{})
	require.NoError(t, err)
	enq := jobs.NewEnqueuer(ch, jobs.NewMemoryDedup(), time.Minute, &log)
	return &hookFixture{hook: NewLeaseHook(enq, &log), out: out}, closer
}

func (f *hookFixture) receive(t *testing.T) *jobs.WorkflowEnqueued {
	t.Helper()
	select {
	case ev := <-f.out:
		job, ok := ev.(jobs.WorkflowEnqueued)
		require.True(t, ok)
		return &job
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func userCtx(id string) context.Context {
	return userctx.ContextSetUser(context.Background(), &userctx.User{ID: id})
}

func TestLeaseWrittenEnqueues(t *testing.T) {
	f, closer := newHookFixture(t)
	defer closer()

	// a create carries no changed-field set
	f.hook.LeaseWritten(userCtx("u1"), "42", nil)

	job := f.receive(t)
	require.NotNil(t, job, "a lease create must enqueue discovery")
	assert.Equal(t, jobs.TaskFullDiscovery, job.Task)
	assert.Equal(t, "42", job.LeaseID)
	assert.Equal(t, "u1", job.UserID)
}

func TestLeaseWrittenMixedFieldsEnqueue(t *testing.T) {
	f, closer := newHookFixture(t)
	defer closer()

	f.hook.LeaseWritten(userCtx("u1"), "42", []string{"runsheet_link", "lease_number"})

	require.NotNil(t, f.receive(t), "a write touching real fields must enqueue")
}

func TestLeaseWrittenTaskManagedFieldsSkip(t *testing.T) {
	f, closer := newHookFixture(t)
	defer closer()

	f.hook.LeaseWritten(userCtx("u1"), "42", []string{"runsheet_archive", "runsheet_link", "runsheet_report_found"})

	assert.Nil(t, f.receive(t), "the workflow's own writes must not re-trigger it")

	// the gate must not burn the dedup window either
	f.hook.LeaseWritten(userCtx("u1"), "42", []string{"lease_number"})
	assert.NotNil(t, f.receive(t))
}

func TestLeaseWrittenNoUserSkips(t *testing.T) {
	f, closer := newHookFixture(t)
	defer closer()

	f.hook.LeaseWritten(context.Background(), "42", nil)

	assert.Nil(t, f.receive(t), "writes without an acting user cannot be processed")
}

func TestOnlyTaskManaged(t *testing.T) {
	assert.False(t, onlyTaskManaged(nil), "a create is never task-managed only")
	assert.False(t, onlyTaskManaged([]string{}))
	assert.True(t, onlyTaskManaged([]string{"runsheet_link"}))
	assert.True(t, onlyTaskManaged([]string{"runsheet_archive", "runsheet_report_found"}))
	assert.False(t, onlyTaskManaged([]string{"runsheet_link", "agency"}))
}
