package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/abdul-hamid-achik/kernspec/packages/host"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenPlatform struct {
	host.Static
}

func (brokenPlatform) Platform() (string, error) {
	return "", errors.New("uname -a failed")
}

func TestRecorder(t *testing.T) {
	store := openStore(t)
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := NewRecorder(store,
		host.Static{ReleaseValue: "5.10.0\n", PlatformValue: "Linux ci 5.10.0\n"},
		WithStartTime(started))
	require.NoError(t, err)
	_, err = uuid.Parse(rec.RunID())
	require.NoError(t, err)

	r := event.NewReporter([]event.Listener{rec})
	for i := 1; i <= 20; i++ {
		status := event.StatusPassed
		if i == 20 {
			status = event.StatusFailed
		}
		require.NoError(t, r.ExampleFinished(&event.Example{
			FullDescription: "pkg TestN",
			Status:          status,
			Duration:        time.Duration(i) * time.Millisecond,
			Exception:       &event.Exception{Message: "slowest one failed"},
		}))
	}
	require.NoError(t, r.ExampleFinished(&event.Example{Status: event.StatusPending}))
	require.NoError(t, r.Finish(5*time.Second))

	run, err := store.LastRun(context.Background(), "5.10.0")
	require.NoError(t, err)
	assert.Equal(t, rec.RunID(), run.ID)
	assert.Equal(t, "Linux ci 5.10.0", run.Platform)
	assert.True(t, run.StartedAt.Equal(started))
	assert.Equal(t, 5*time.Second, run.Duration)
	assert.Equal(t, 21, run.Examples)
	assert.Equal(t, 1, run.Failures)
	assert.Equal(t, 1, run.Pending)
	assert.InDelta(t, float64(10*time.Millisecond), float64(run.P50), float64(100*time.Microsecond))
	assert.InDelta(t, float64(19*time.Millisecond), float64(run.P95), float64(100*time.Microsecond))
	assert.InDelta(t, float64(20*time.Millisecond), float64(run.Max), float64(100*time.Microsecond))

	failures, err := store.Failures(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "slowest one failed", failures[0].Message)
}

func TestRecorder_PlatformError(t *testing.T) {
	store := openStore(t)
	rec, err := NewRecorder(store, brokenPlatform{host.Static{ReleaseValue: "5.10.0"}}, WithRunID("fixed"))
	require.NoError(t, err)

	r := event.NewReporter([]event.Listener{rec})
	err = r.Finish(time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uname -a failed")

	runs, err := store.ListRuns(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecorder_FailuresWithoutSummary(t *testing.T) {
	store := openStore(t)
	rec, err := NewRecorder(store, host.Static{ReleaseValue: "5.10.0"})
	require.NoError(t, err)
	assert.Error(t, rec.DumpFailures(event.ExamplesNotification{}))
}
