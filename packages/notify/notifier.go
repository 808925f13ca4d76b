// Package notify sends release-tagged run summaries to chat services.
package notify

import (
	"errors"
	"fmt"
	"time"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when tests fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when tests pass
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and when tests recover from failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch n := NotifyOn(s); n {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return n, nil
	}
	return "", fmt.Errorf("unknown notify policy %q (want always, failure, success or recovery)", s)
}

// RunSummary represents the summary of a test run for notifications
type RunSummary struct {
	Release       string        `json:"release"`
	Platform      string        `json:"platform,omitempty"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	PendingTests  int           `json:"pending_tests"`
	Duration      time.Duration `json:"duration"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// FailedTest represents a failed example for notifications
type FailedTest struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about test results
	Notify(summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager. previousPassed is the
// outcome of the last run on the same release, used by NotifyRecovery.
func NewManager(notifyOn NotifyOn, previousPassed bool, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: previousPassed,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// ShouldNotify applies the policy to summary and marks recoveries
func (m *Manager) ShouldNotify(summary *RunSummary) bool {
	currentSuccess := summary.FailedTests == 0

	switch m.notifyOn {
	case NotifyAlways:
		return true
	case NotifyFailure:
		return !currentSuccess
	case NotifySuccess:
		return currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			summary.IsRecovery = true
			return true
		}
		return !currentSuccess
	}
	return false
}

// Notify sends notifications based on the configured policy. Every notifier
// is attempted; their errors are joined.
func (m *Manager) Notify(summary *RunSummary) error {
	shouldNotify := m.ShouldNotify(summary)
	m.lastState = summary.FailedTests == 0
	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
