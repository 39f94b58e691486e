package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "dedup:task:runsheet_full_discovery:lease:42", DedupKey(TaskFullDiscovery, "42"))
}

func TestMemoryDedupWindow(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDedup()

	ok, err := d.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first acquire wins")

	ok, err = d.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire within the window loses")

	ok, err = d.TryAcquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, d.Delete(ctx, "k"))
	ok, err = d.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "deleted keys can be re-acquired")
}

func TestMemoryDedupExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	d := &memoryDedup{expires: map[string]time.Time{}, now: func() time.Time { return now }}

	ok, err := d.TryAcquire(ctx, "k", 120*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(119 * time.Second)
	ok, _ = d.TryAcquire(ctx, "k", 120*time.Second)
	assert.False(t, ok, "window still held just before expiry")

	now = now.Add(2 * time.Second)
	ok, _ = d.TryAcquire(ctx, "k", 120*time.Second)
	assert.True(t, ok, "expired windows reopen")
}
