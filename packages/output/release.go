package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/abdul-hamid-achik/kernspec/packages/host"
	"github.com/fatih/color"
)

// ReleaseFormatter prefixes group and summary output with the host kernel
// release. Per-example progress output is suppressed.
type ReleaseFormatter struct {
	writer  io.Writer
	host    host.Provider
	release string
	failure *color.Color
	noColor bool
}

type ReleaseOption func(*ReleaseFormatter)

func ReleaseWithNoColor(nc bool) ReleaseOption {
	return func(f *ReleaseFormatter) {
		f.noColor = nc
	}
}

// NewReleaseFormatter reads the release from h once. A lookup failure is
// returned as is; there is no fallback label.
func NewReleaseFormatter(w io.Writer, h host.Provider, opts ...ReleaseOption) (*ReleaseFormatter, error) {
	release, err := h.Release()
	if err != nil {
		return nil, fmt.Errorf("reading kernel release: %w", err)
	}

	f := &ReleaseFormatter{
		writer:  w,
		host:    h,
		release: strings.TrimSpace(release),
		failure: color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		f.failure.DisableColor()
	}
	return f, nil
}

// Release returns the captured kernel release
func (f *ReleaseFormatter) Release() string {
	return f.release
}

// ExamplePassed swallows the default "." output
func (f *ReleaseFormatter) ExamplePassed(event.ExampleNotification) error {
	return nil
}

// ExampleFailed swallows the default "F" output
func (f *ReleaseFormatter) ExampleFailed(event.ExampleNotification) error {
	return nil
}

func (f *ReleaseFormatter) GroupStarted(n event.GroupNotification) error {
	return f.write(fmt.Sprintf("\n[%s] started %s\n", f.release, n.Group.Description))
}

func (f *ReleaseFormatter) GroupFinished(n event.GroupNotification) error {
	return f.write(fmt.Sprintf("[%s] finished %s\n\n", f.release, n.Group.Description))
}

func (f *ReleaseFormatter) DumpSummary(n event.SummaryNotification) error {
	platform, err := f.host.Platform()
	if err != nil {
		return fmt.Errorf("reading platform: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Finished in %s.\n", f.release, FormatDuration(n.Duration))
	fmt.Fprintf(&b, "[%s] Platform: %s\n\n", f.release, strings.TrimRight(platform, " \t\r\n"))
	return f.write(b.String())
}

func (f *ReleaseFormatter) DumpFailures(n event.ExamplesNotification) error {
	if len(n.FailedExamples) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(f.failure.Sprintf("[%s] FAILURES:", f.release))
	b.WriteString("\n\n")
	for _, e := range n.FailedExamples {
		fmt.Fprintf(&b, "%s:\n%s\n\n", e.FullDescription, e.Message())
	}
	return f.write(b.String())
}

func (f *ReleaseFormatter) write(s string) error {
	_, err := io.WriteString(f.writer, s)
	return err
}
