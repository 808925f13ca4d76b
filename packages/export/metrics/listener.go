package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/abdul-hamid-achik/kernspec/packages/host"
	"go.uber.org/zap"
)

// Listener aggregates a run and hands the result to every exporter on
// DumpSummary. Export failures are logged, never returned.
type Listener struct {
	event.NopListener

	exporters []Exporter
	host      host.Provider
	release   string
	durations *Durations
	logger    *zap.Logger
	now       func() time.Time
}

// NewListener reads the release from h once, as the formatters do
func NewListener(h host.Provider, logger *zap.Logger, exporters ...Exporter) (*Listener, error) {
	release, err := h.Release()
	if err != nil {
		return nil, fmt.Errorf("reading kernel release: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		exporters: exporters,
		host:      h,
		release:   strings.TrimSpace(release),
		durations: NewDurations(),
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (l *Listener) ExamplePassed(n event.ExampleNotification) error {
	l.durations.Record(n.Example.Duration)
	return nil
}

func (l *Listener) ExampleFailed(n event.ExampleNotification) error {
	l.durations.Record(n.Example.Duration)
	return nil
}

func (l *Listener) DumpSummary(n event.SummaryNotification) error {
	agg := &Aggregate{
		Release:       l.release,
		Examples:      n.ExampleCount(),
		Passed:        n.ExampleCount() - n.FailureCount() - n.PendingCount(),
		Failed:        n.FailureCount(),
		Pending:       n.PendingCount(),
		DurationMs:    millis(n.Duration),
		P50DurationMs: millis(l.durations.Quantile(50)),
		P95DurationMs: millis(l.durations.Quantile(95)),
		MaxDurationMs: millis(l.durations.Max()),
		Timestamp:     l.now(),
	}
	if platform, err := l.host.Platform(); err == nil {
		agg.Platform = strings.TrimSpace(platform)
	} else {
		l.logger.Warn("cannot read platform for metrics", zap.Error(err))
	}

	for _, e := range l.exporters {
		if err := e.Export(agg); err != nil {
			l.logger.Warn("failed to export metrics", zap.String("exporter", e.Name()), zap.Error(err))
		}
	}
	return nil
}
