package event

import (
	"errors"
	"fmt"
	"time"
)

// ErrFinished is returned when events arrive after Finish
var ErrFinished = errors.New("reporter already finished")

// Reporter dispatches lifecycle events to its listeners in registration
// order and accumulates the examples needed for the end-of-run dumps.
type Reporter struct {
	listeners []Listener
	now       func() time.Time

	started  time.Time
	finished bool

	examples []*Example
	failed   []*Example
	pending  []*Example
}

type ReporterOption func(*Reporter)

// WithClock overrides the clock used to measure the run when no explicit
// duration is given to Finish.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		r.now = now
	}
}

func NewReporter(listeners []Listener, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		listeners: append([]Listener(nil), listeners...),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.started = r.now()
	return r
}

// Register appends a listener. Listeners registered mid-run only see
// subsequent events.
func (r *Reporter) Register(l Listener) {
	r.listeners = append(r.listeners, l)
}

// GroupStarted notifies listeners that g has started
func (r *Reporter) GroupStarted(g *Group) error {
	if r.finished {
		return ErrFinished
	}
	n := GroupNotification{Group: g}
	return r.dispatch("group started", func(l Listener) error { return l.GroupStarted(n) })
}

// GroupFinished notifies listeners that g has finished
func (r *Reporter) GroupFinished(g *Group) error {
	if r.finished {
		return ErrFinished
	}
	n := GroupNotification{Group: g}
	return r.dispatch("group finished", func(l Listener) error { return l.GroupFinished(n) })
}

// ExampleFinished records e and notifies listeners according to its status.
// Pending examples are only recorded.
func (r *Reporter) ExampleFinished(e *Example) error {
	if r.finished {
		return ErrFinished
	}
	r.examples = append(r.examples, e)
	n := ExampleNotification{Example: e}

	switch e.Status {
	case StatusFailed:
		r.failed = append(r.failed, e)
		return r.dispatch("example failed", func(l Listener) error { return l.ExampleFailed(n) })
	case StatusPending:
		r.pending = append(r.pending, e)
		return nil
	default:
		return r.dispatch("example passed", func(l Listener) error { return l.ExamplePassed(n) })
	}
}

// Finish dispatches DumpSummary followed by DumpFailures. A non-positive
// duration is replaced by the time elapsed since the reporter was created.
func (r *Reporter) Finish(duration time.Duration) error {
	if r.finished {
		return ErrFinished
	}
	r.finished = true

	if duration <= 0 {
		duration = r.now().Sub(r.started)
	}

	summary := SummaryNotification{
		Duration:        duration,
		Examples:        r.examples,
		FailedExamples:  r.failed,
		PendingExamples: r.pending,
	}
	if err := r.dispatch("dump summary", func(l Listener) error { return l.DumpSummary(summary) }); err != nil {
		return err
	}

	failures := ExamplesNotification{
		Examples:       r.examples,
		FailedExamples: r.failed,
	}
	return r.dispatch("dump failures", func(l Listener) error { return l.DumpFailures(failures) })
}

// Failed reports whether any example has failed so far
func (r *Reporter) Failed() bool {
	return len(r.failed) > 0
}

func (r *Reporter) dispatch(name string, fn func(Listener) error) error {
	for _, l := range r.listeners {
		if err := fn(l); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
