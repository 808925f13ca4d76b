package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
)

// TAPFormatter formats examples in TAP (Test Anything Protocol) format
type TAPFormatter struct {
	writer  io.Writer
	release string
}

type TAPOption func(*TAPFormatter)

func NewTAPFormatter(opts ...TAPOption) *TAPFormatter {
	f := &TAPFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPFormatter) {
		f.writer = w
	}
}

// TAPWithRelease emits the kernel release as a diagnostic after the plan
func TAPWithRelease(release string) TAPOption {
	return func(f *TAPFormatter) {
		f.release = release
	}
}

func (f *TAPFormatter) ExamplePassed(event.ExampleNotification) error { return nil }
func (f *TAPFormatter) ExampleFailed(event.ExampleNotification) error { return nil }
func (f *TAPFormatter) GroupStarted(event.GroupNotification) error    { return nil }
func (f *TAPFormatter) GroupFinished(event.GroupNotification) error   { return nil }
func (f *TAPFormatter) DumpFailures(event.ExamplesNotification) error { return nil }

// DumpSummary writes the TAP stream
func (f *TAPFormatter) DumpSummary(n event.SummaryNotification) error {
	var b strings.Builder

	b.WriteString("TAP version 13\n")
	fmt.Fprintf(&b, "1..%d\n", n.ExampleCount())
	if f.release != "" {
		fmt.Fprintf(&b, "# release %s\n", f.release)
	}

	for i, e := range n.Examples {
		number := i + 1
		switch e.Status {
		case event.StatusPending:
			fmt.Fprintf(&b, "ok %d - %s # SKIP\n", number, e.FullDescription)
		case event.StatusFailed:
			fmt.Fprintf(&b, "not ok %d - %s\n", number, e.FullDescription)
			b.WriteString("  ---\n")
			fmt.Fprintf(&b, "  message: %s\n", escapeYAML(e.Message()))
			b.WriteString("  severity: fail\n")
			b.WriteString("  ...\n")
		default:
			fmt.Fprintf(&b, "ok %d - %s\n", number, e.FullDescription)
		}
	}

	// Add final newline for proper TAP output
	b.WriteString("\n")

	_, err := io.WriteString(f.writer, b.String())
	return err
}

func escapeYAML(s string) string {
	// Simple YAML escaping - wrap in quotes if contains special chars
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
