package event

// Listener receives lifecycle notifications from a Reporter. Methods are
// called synchronously on the dispatching goroutine and must return before
// the next event fires. A non-nil error aborts the dispatch.
type Listener interface {
	ExamplePassed(n ExampleNotification) error
	ExampleFailed(n ExampleNotification) error
	GroupStarted(n GroupNotification) error
	GroupFinished(n GroupNotification) error
	DumpSummary(n SummaryNotification) error
	DumpFailures(n ExamplesNotification) error
}

// NopListener implements Listener with no-ops. Embed it to handle only a
// subset of events.
type NopListener struct{}

func (NopListener) ExamplePassed(ExampleNotification) error { return nil }
func (NopListener) ExampleFailed(ExampleNotification) error { return nil }
func (NopListener) GroupStarted(GroupNotification) error    { return nil }
func (NopListener) GroupFinished(GroupNotification) error   { return nil }
func (NopListener) DumpSummary(SummaryNotification) error   { return nil }
func (NopListener) DumpFailures(ExamplesNotification) error { return nil }
