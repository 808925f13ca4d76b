package notify

import (
	"strings"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/abdul-hamid-achik/kernspec/packages/host"
	"go.uber.org/zap"
)

// Listener collects the run summary and hands it to a Manager once the
// failures have been dumped. Delivery problems are logged, never returned.
type Listener struct {
	event.NopListener

	manager *Manager
	host    host.Provider
	logger  *zap.Logger
	summary *RunSummary
}

func NewListener(m *Manager, h host.Provider, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{manager: m, host: h, logger: logger}
}

func (l *Listener) DumpSummary(n event.SummaryNotification) error {
	s := &RunSummary{
		TotalTests:   n.ExampleCount(),
		PassedTests:  n.ExampleCount() - n.FailureCount() - n.PendingCount(),
		FailedTests:  n.FailureCount(),
		PendingTests: n.PendingCount(),
		Duration:     n.Duration,
	}
	if release, err := l.host.Release(); err == nil {
		s.Release = strings.TrimSpace(release)
	} else {
		l.logger.Warn("cannot read release for notification", zap.Error(err))
	}
	if platform, err := l.host.Platform(); err == nil {
		s.Platform = strings.TrimSpace(platform)
	} else {
		l.logger.Warn("cannot read platform for notification", zap.Error(err))
	}
	l.summary = s
	return nil
}

func (l *Listener) DumpFailures(n event.ExamplesNotification) error {
	if l.summary == nil {
		return nil
	}
	for _, e := range n.FailedExamples {
		l.summary.FailedResults = append(l.summary.FailedResults, FailedTest{
			Name:    e.FullDescription,
			Message: e.Message(),
		})
	}

	if err := l.manager.Notify(l.summary); err != nil {
		l.logger.Warn("failed to send notification", zap.Error(err))
	}
	return nil
}
