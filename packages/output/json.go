package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Release  string        `json:"release,omitempty"`
	Summary  JSONSummary   `json:"summary"`
	Examples []JSONExample `json:"examples"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONSummary represents the run summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// JSONExample represents a single example result
type JSONExample struct {
	Description     string  `json:"description"`
	FullDescription string  `json:"fullDescription"`
	Group           string  `json:"group,omitempty"`
	Status          string  `json:"status"`
	Duration        float64 `json:"duration"`
	Message         string  `json:"message,omitempty"`
}

// JSONFormatter formats examples as a single JSON document
type JSONFormatter struct {
	writer  io.Writer
	release string
	now     func() time.Time
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// JSONWithRelease tags the document with the host kernel release
func JSONWithRelease(release string) JSONOption {
	return func(f *JSONFormatter) {
		f.release = release
	}
}

func JSONWithClock(now func() time.Time) JSONOption {
	return func(f *JSONFormatter) {
		f.now = now
	}
}

func (f *JSONFormatter) ExamplePassed(event.ExampleNotification) error { return nil }
func (f *JSONFormatter) ExampleFailed(event.ExampleNotification) error { return nil }
func (f *JSONFormatter) GroupStarted(event.GroupNotification) error    { return nil }
func (f *JSONFormatter) GroupFinished(event.GroupNotification) error   { return nil }
func (f *JSONFormatter) DumpFailures(event.ExamplesNotification) error { return nil }

// DumpSummary writes the accumulated JSON output
func (f *JSONFormatter) DumpSummary(n event.SummaryNotification) error {
	examples := make([]JSONExample, 0, len(n.Examples))
	passed := 0
	for _, e := range n.Examples {
		if e.Status == event.StatusPassed {
			passed++
		}
		examples = append(examples, JSONExample{
			Description:     e.Description,
			FullDescription: e.FullDescription,
			Group:           groupName(e.Group),
			Status:          string(e.Status),
			Duration:        float64(e.Duration.Milliseconds()),
			Message:         e.Message(),
		})
	}

	output := JSONOutput{
		Release: f.release,
		Summary: JSONSummary{
			Total:   n.ExampleCount(),
			Passed:  passed,
			Failed:  n.FailureCount(),
			Pending: n.PendingCount(),
		},
		Examples: examples,
		Duration: float64(n.Duration.Milliseconds()),
		Time:     f.now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// groupName returns the top-level group description
func groupName(g *event.Group) string {
	if g == nil {
		return ""
	}
	for g.Parent != nil {
		g = g.Parent
	}
	return g.Description
}
