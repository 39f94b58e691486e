package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaseworks/lade/pkg/events"
	"github.com/leaseworks/lade/pkg/events/stream"
)

type testJob struct {
	ID string
}

// Unmarshal to fulfill the events unmarshaller interface.
func (testJob) Unmarshal(v []byte) (interface{}, error) {
	j := testJob{}
	err := json.Unmarshal(v, &j)
	return j, err
}

func TestPublishConsume(t *testing.T) {
	ch, closer := stream.Local()
	defer closer()

	out, err := events.Consume(ch, "g", testJob{})
	require.NoError(t, err)
	require.NoError(t, events.Publish(ch, testJob{ID: "1"}))

	select {
	case ev := <-out:
		job, ok := ev.(testJob)
		require.True(t, ok)
		assert.Equal(t, "1", job.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestConsumeEndsWhenStreamCloses(t *testing.T) {
	ch, closer := stream.Local()

	out, err := events.Consume(ch, "g", testJob{})
	require.NoError(t, err)

	closer()

	select {
	case _, ok := <-out:
		assert.False(t, ok, "the consume channel must close with the stream")
	case <-time.After(time.Second):
		t.Fatal("consume channel did not close")
	}
}
