// Package metrics exports per-run aggregates of a test run, tagged with the
// kernel release, to metrics backends and files.
package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// histogram range: 1us to 1h, 3 significant digits
const (
	minTrackable = 1
	maxTrackable = int64(time.Hour / time.Microsecond)
)

// Durations tracks example durations with microsecond resolution. Values
// outside 1us..1h are clamped.
type Durations struct {
	hist *hdrhistogram.Histogram
}

func NewDurations() *Durations {
	return &Durations{hist: hdrhistogram.New(minTrackable, maxTrackable, 3)}
}

// Record adds one duration
func (d *Durations) Record(v time.Duration) {
	us := v.Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}
	_ = d.hist.RecordValue(us)
}

// Count returns the number of recorded durations
func (d *Durations) Count() int64 {
	return d.hist.TotalCount()
}

// Quantile returns the duration at q percent, or 0 when nothing was recorded
func (d *Durations) Quantile(q float64) time.Duration {
	if d.Count() == 0 {
		return 0
	}
	return time.Duration(d.hist.ValueAtQuantile(q)) * time.Microsecond
}

// Max returns the largest recorded duration, or 0 when nothing was recorded
func (d *Durations) Max() time.Duration {
	if d.Count() == 0 {
		return 0
	}
	return time.Duration(d.hist.Max()) * time.Microsecond
}

// Aggregate is the summary of one run
type Aggregate struct {
	Release       string    `json:"release"`
	Platform      string    `json:"platform,omitempty"`
	Examples      int       `json:"examples"`
	Passed        int       `json:"passed"`
	Failed        int       `json:"failed"`
	Pending       int       `json:"pending"`
	DurationMs    float64   `json:"duration_ms"`
	P50DurationMs float64   `json:"p50_duration_ms"`
	P95DurationMs float64   `json:"p95_duration_ms"`
	MaxDurationMs float64   `json:"max_duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// Exporter is the interface for metrics exporters
type Exporter interface {
	// Export sends or writes the aggregate of a finished run
	Export(agg *Aggregate) error

	// Name returns the name of the exporter
	Name() string
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
