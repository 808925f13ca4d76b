package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/abdul-hamid-achik/kernspec/packages/export/metrics"
	"github.com/abdul-hamid-achik/kernspec/packages/host"
	"github.com/google/uuid"
)

// Recorder is an event.Listener that saves each run to a Store
type Recorder struct {
	event.NopListener

	store     *Store
	host      host.Provider
	release   string
	runID     string
	started   time.Time
	saved     bool
	durations *metrics.Durations
}

type RecorderOption func(*Recorder)

// WithRunID fixes the run ID instead of generating one
func WithRunID(id string) RecorderOption {
	return func(r *Recorder) {
		r.runID = id
	}
}

// WithStartTime sets the recorded start time of the run
func WithStartTime(t time.Time) RecorderOption {
	return func(r *Recorder) {
		r.started = t
	}
}

// NewRecorder reads the release from h once, as the formatters do
func NewRecorder(store *Store, h host.Provider, opts ...RecorderOption) (*Recorder, error) {
	release, err := h.Release()
	if err != nil {
		return nil, fmt.Errorf("reading kernel release: %w", err)
	}

	r := &Recorder{
		store:     store,
		host:      h,
		release:   strings.TrimSpace(release),
		runID:     uuid.New().String(),
		started:   time.Now(),
		durations: metrics.NewDurations(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunID returns the ID the run is stored under
func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) ExamplePassed(n event.ExampleNotification) error {
	r.durations.Record(n.Example.Duration)
	return nil
}

func (r *Recorder) ExampleFailed(n event.ExampleNotification) error {
	r.durations.Record(n.Example.Duration)
	return nil
}

// DumpSummary saves the run
func (r *Recorder) DumpSummary(n event.SummaryNotification) error {
	platform, err := r.host.Platform()
	if err != nil {
		return fmt.Errorf("reading platform: %w", err)
	}

	run := &Run{
		ID:        r.runID,
		Release:   r.release,
		Platform:  strings.TrimSpace(platform),
		StartedAt: r.started,
		Duration:  n.Duration,
		Examples:  n.ExampleCount(),
		Failures:  n.FailureCount(),
		Pending:   n.PendingCount(),
		P50:       r.durations.Quantile(50),
		P95:       r.durations.Quantile(95),
		Max:       r.durations.Max(),
	}

	if err := r.store.SaveRun(context.Background(), run); err != nil {
		return err
	}
	r.saved = true
	return nil
}

// DumpFailures saves the failures of the run saved by DumpSummary
func (r *Recorder) DumpFailures(n event.ExamplesNotification) error {
	if !r.saved {
		return fmt.Errorf("run %s was not saved", r.runID)
	}

	failures := make([]Failure, 0, len(n.FailedExamples))
	for _, e := range n.FailedExamples {
		failures = append(failures, Failure{
			RunID:       r.runID,
			Description: e.FullDescription,
			Message:     e.Message(),
		})
	}
	return r.store.SaveFailures(context.Background(), r.runID, failures)
}
