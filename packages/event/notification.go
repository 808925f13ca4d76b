package event

import "time"

// Status is the outcome of a single example
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Group is a named collection of examples
type Group struct {
	Description string
	// Parent is nil for top-level groups
	Parent *Group
}

// Exception is the failure attached to a failed example
type Exception struct {
	Message string
}

// Example is a single test case and its result
type Example struct {
	Description     string
	FullDescription string
	Group           *Group
	Status          Status
	Duration        time.Duration
	Exception       *Exception
}

// Message returns the exception message, or "" when the example has none.
func (e *Example) Message() string {
	if e == nil || e.Exception == nil {
		return ""
	}
	return e.Exception.Message
}

// ExampleNotification is delivered for every finished example
type ExampleNotification struct {
	Example *Example
}

// GroupNotification is delivered when a group starts or finishes
type GroupNotification struct {
	Group *Group
}

// SummaryNotification is delivered once at the end of a run
type SummaryNotification struct {
	Duration        time.Duration
	Examples        []*Example
	FailedExamples  []*Example
	PendingExamples []*Example
}

// ExampleCount returns the number of finished examples
func (n SummaryNotification) ExampleCount() int {
	return len(n.Examples)
}

// FailureCount returns the number of failed examples
func (n SummaryNotification) FailureCount() int {
	return len(n.FailedExamples)
}

// PendingCount returns the number of pending examples
func (n SummaryNotification) PendingCount() int {
	return len(n.PendingExamples)
}

// ExamplesNotification carries every example of the run, plus the failed subset
type ExamplesNotification struct {
	Examples       []*Example
	FailedExamples []*Example
}
