package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/fatih/color"
)

// ProgressFormatter prints one character per example and a numbered failure
// list at the end of the run.
type ProgressFormatter struct {
	writer  io.Writer
	noColor bool

	pass    *color.Color
	fail    *color.Color
	pending *color.Color
	bold    *color.Color
}

type ProgressOption func(*ProgressFormatter)

func NewProgressFormatter(opts ...ProgressOption) *ProgressFormatter {
	f := &ProgressFormatter{
		writer:  os.Stdout,
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		pending: color.New(color.FgYellow),
		bold:    color.New(color.Bold),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		for _, c := range []*color.Color{f.pass, f.fail, f.pending, f.bold} {
			c.DisableColor()
		}
	}
	return f
}

func WithWriter(w io.Writer) ProgressOption {
	return func(f *ProgressFormatter) {
		f.writer = w
	}
}

func WithNoColor(nc bool) ProgressOption {
	return func(f *ProgressFormatter) {
		f.noColor = nc
	}
}

func (f *ProgressFormatter) ExamplePassed(event.ExampleNotification) error {
	_, err := io.WriteString(f.writer, f.pass.Sprint("."))
	return err
}

func (f *ProgressFormatter) ExampleFailed(event.ExampleNotification) error {
	_, err := io.WriteString(f.writer, f.fail.Sprint("F"))
	return err
}

func (f *ProgressFormatter) GroupStarted(event.GroupNotification) error {
	return nil
}

func (f *ProgressFormatter) GroupFinished(event.GroupNotification) error {
	return nil
}

func (f *ProgressFormatter) DumpSummary(n event.SummaryNotification) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\nFinished in %s\n", FormatDuration(n.Duration))

	totals := fmt.Sprintf("%d %s, %d %s",
		n.ExampleCount(), plural(n.ExampleCount(), "example"),
		n.FailureCount(), plural(n.FailureCount(), "failure"))
	if n.PendingCount() > 0 {
		totals += fmt.Sprintf(", %d pending", n.PendingCount())
	}

	switch {
	case n.FailureCount() > 0:
		totals = f.fail.Sprint(totals)
	case n.PendingCount() > 0:
		totals = f.pending.Sprint(totals)
	default:
		totals = f.pass.Sprint(totals)
	}
	fmt.Fprintf(&b, "%s\n", totals)

	_, err := io.WriteString(f.writer, b.String())
	return err
}

func (f *ProgressFormatter) DumpFailures(n event.ExamplesNotification) error {
	if len(n.FailedExamples) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", f.bold.Sprint("Failures:"))
	for i, e := range n.FailedExamples {
		fmt.Fprintf(&b, "\n  %d) %s\n", i+1, e.FullDescription)
		for _, line := range strings.Split(e.Message(), "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(&b, "     %s\n", f.fail.Sprint(line))
		}
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
