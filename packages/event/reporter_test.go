package event

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	calls   []string
	summary SummaryNotification
	dumped  ExamplesNotification
	failOn  string
}

func (l *recordingListener) record(call string) error {
	l.calls = append(l.calls, call)
	if call == l.failOn {
		return errors.New("boom")
	}
	return nil
}

func (l *recordingListener) ExamplePassed(n ExampleNotification) error {
	return l.record("passed:" + n.Example.Description)
}

func (l *recordingListener) ExampleFailed(n ExampleNotification) error {
	return l.record("failed:" + n.Example.Description)
}

func (l *recordingListener) GroupStarted(n GroupNotification) error {
	return l.record("started:" + n.Group.Description)
}

func (l *recordingListener) GroupFinished(n GroupNotification) error {
	return l.record("finished:" + n.Group.Description)
}

func (l *recordingListener) DumpSummary(n SummaryNotification) error {
	l.summary = n
	return l.record("summary")
}

func (l *recordingListener) DumpFailures(n ExamplesNotification) error {
	l.dumped = n
	return l.record("failures")
}

func TestReporter_DispatchOrder(t *testing.T) {
	first := &recordingListener{}
	second := &recordingListener{}
	r := NewReporter([]Listener{first, second})

	group := &Group{Description: "Auth"}
	require.NoError(t, r.GroupStarted(group))
	require.NoError(t, r.ExampleFinished(&Example{Description: "accepts token", Status: StatusPassed}))
	require.NoError(t, r.ExampleFinished(&Example{Description: "rejects bad token", Status: StatusFailed}))
	require.NoError(t, r.ExampleFinished(&Example{Description: "rotates keys", Status: StatusPending}))
	require.NoError(t, r.GroupFinished(group))
	require.NoError(t, r.Finish(3*time.Second))

	expected := []string{
		"started:Auth",
		"passed:accepts token",
		"failed:rejects bad token",
		"finished:Auth",
		"summary",
		"failures",
	}
	assert.Equal(t, expected, first.calls)
	assert.Equal(t, expected, second.calls)

	assert.Equal(t, 3*time.Second, first.summary.Duration)
	assert.Equal(t, 3, first.summary.ExampleCount())
	assert.Equal(t, 1, first.summary.FailureCount())
	assert.Equal(t, 1, first.summary.PendingCount())
	require.Len(t, first.dumped.FailedExamples, 1)
	assert.Equal(t, "rejects bad token", first.dumped.FailedExamples[0].Description)
	assert.True(t, r.Failed())
}

func TestReporter_StopsOnFirstError(t *testing.T) {
	failing := &recordingListener{failOn: "started:Auth"}
	after := &recordingListener{}
	r := NewReporter([]Listener{failing, after})

	err := r.GroupStarted(&Group{Description: "Auth"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group started")
	assert.Empty(t, after.calls)
}

func TestReporter_SummaryErrorSkipsFailures(t *testing.T) {
	l := &recordingListener{failOn: "summary"}
	r := NewReporter([]Listener{l})

	require.Error(t, r.Finish(time.Second))
	assert.Equal(t, []string{"summary"}, l.calls)
}

func TestReporter_FinishUsesClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	l := &recordingListener{}
	r := NewReporter([]Listener{l}, WithClock(func() time.Time { return now }))

	now = start.Add(90 * time.Second)
	require.NoError(t, r.Finish(0))
	assert.Equal(t, 90*time.Second, l.summary.Duration)
}

func TestReporter_RejectsEventsAfterFinish(t *testing.T) {
	r := NewReporter(nil)
	require.NoError(t, r.Finish(time.Second))

	assert.ErrorIs(t, r.Finish(time.Second), ErrFinished)
	assert.ErrorIs(t, r.GroupStarted(&Group{}), ErrFinished)
	assert.ErrorIs(t, r.ExampleFinished(&Example{}), ErrFinished)
}

func TestReporter_Register(t *testing.T) {
	r := NewReporter(nil)
	l := &recordingListener{}
	r.Register(l)

	require.NoError(t, r.ExampleFinished(&Example{Description: "x", Status: StatusPassed}))
	assert.Equal(t, []string{"passed:x"}, l.calls)
}

func TestExample_Message(t *testing.T) {
	var nilExample *Example
	assert.Equal(t, "", nilExample.Message())
	assert.Equal(t, "", (&Example{}).Message())
	assert.Equal(t, "expected 401", (&Example{Exception: &Exception{Message: "expected 401"}}).Message())
}
