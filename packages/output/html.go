package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
)

// HTMLOutput represents the complete HTML output structure
type HTMLOutput struct {
	Release        string
	Summary        HTMLSummary
	Groups         []HTMLGroup
	Failures       []HTMLExample
	Duration       string
	Time           string
	PassedPercent  float64
	FailedPercent  float64
	PendingPercent float64
}

// HTMLSummary represents the run summary for HTML output
type HTMLSummary struct {
	Total   int
	Passed  int
	Failed  int
	Pending int
}

// HTMLGroup holds the examples of one top-level group, in run order
type HTMLGroup struct {
	Name     string
	Failed   int
	Examples []HTMLExample
}

// HTMLExample represents a single example for HTML output
type HTMLExample struct {
	Description     string
	FullDescription string
	Status          string
	Duration        string
	Message         string
}

// HTMLFormatter renders a self-contained HTML report at summary time
type HTMLFormatter struct {
	writer  io.Writer
	release string
	now     func() time.Time
	tmpl    *template.Template
}

// HTMLOption is a functional option for HTMLFormatter
type HTMLOption func(*HTMLFormatter)

// NewHTMLFormatter creates a new HTML formatter
func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{
		writer: os.Stdout,
		now:    time.Now,
		tmpl:   template.Must(template.New("report").Parse(htmlTemplate)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HTMLWithWriter sets the output writer
func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

// HTMLWithRelease puts the kernel release in the report title
func HTMLWithRelease(release string) HTMLOption {
	return func(f *HTMLFormatter) {
		f.release = release
	}
}

func HTMLWithClock(now func() time.Time) HTMLOption {
	return func(f *HTMLFormatter) {
		f.now = now
	}
}

func (f *HTMLFormatter) ExamplePassed(event.ExampleNotification) error { return nil }
func (f *HTMLFormatter) ExampleFailed(event.ExampleNotification) error { return nil }
func (f *HTMLFormatter) GroupStarted(event.GroupNotification) error    { return nil }
func (f *HTMLFormatter) GroupFinished(event.GroupNotification) error   { return nil }
func (f *HTMLFormatter) DumpFailures(event.ExamplesNotification) error { return nil }

// DumpSummary writes the report
func (f *HTMLFormatter) DumpSummary(n event.SummaryNotification) error {
	var groups []HTMLGroup
	index := make(map[string]int)
	passed := 0

	for _, e := range n.Examples {
		if e.Status == event.StatusPassed {
			passed++
		}
		name := groupName(e.Group)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, HTMLGroup{Name: name})
		}
		if e.Status == event.StatusFailed {
			groups[i].Failed++
		}
		groups[i].Examples = append(groups[i].Examples, htmlExample(e))
	}

	failures := make([]HTMLExample, 0, len(n.FailedExamples))
	for _, e := range n.FailedExamples {
		failures = append(failures, htmlExample(e))
	}

	total := n.ExampleCount()
	output := HTMLOutput{
		Release: f.release,
		Summary: HTMLSummary{
			Total:   total,
			Passed:  passed,
			Failed:  n.FailureCount(),
			Pending: n.PendingCount(),
		},
		Groups:   groups,
		Failures: failures,
		Duration: FormatDuration(n.Duration),
		Time:     f.now().Format("2006-01-02 15:04:05"),
	}
	if total > 0 {
		output.PassedPercent = float64(passed) / float64(total) * 100
		output.FailedPercent = float64(n.FailureCount()) / float64(total) * 100
		output.PendingPercent = float64(n.PendingCount()) / float64(total) * 100
	}

	if err := f.tmpl.Execute(f.writer, output); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}

func htmlExample(e *event.Example) HTMLExample {
	return HTMLExample{
		Description:     e.Description,
		FullDescription: e.FullDescription,
		Status:          string(e.Status),
		Duration:        FormatDuration(e.Duration),
		Message:         e.Message(),
	}
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Release}}[{{.Release}}] {{end}}kernspec report</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; }
.bar { display: flex; height: .6rem; border-radius: .3rem; overflow: hidden; background: #eee; margin: 1rem 0; }
.bar .passed { background: #2e7d32; } .bar .failed { background: #c62828; } .bar .pending { background: #f9a825; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
th, td { text-align: left; padding: .3rem .6rem; border-bottom: 1px solid #eee; }
td.passed { color: #2e7d32; } td.failed { color: #c62828; } td.pending { color: #f9a825; }
pre { background: #fafafa; border-left: 3px solid #c62828; padding: .6rem; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{if .Release}}[{{.Release}}] {{end}}Finished in {{.Duration}}</h1>
<p>{{.Summary.Total}} examples, {{.Summary.Failed}} failures, {{.Summary.Pending}} pending. Generated {{.Time}}.</p>
<div class="bar">
<div class="passed" style="width: {{printf "%.1f" .PassedPercent}}%"></div>
<div class="failed" style="width: {{printf "%.1f" .FailedPercent}}%"></div>
<div class="pending" style="width: {{printf "%.1f" .PendingPercent}}%"></div>
</div>
{{range .Groups}}
<h2>{{.Name}}{{if .Failed}} ({{.Failed}} failed){{end}}</h2>
<table>
<tr><th>Example</th><th>Status</th><th>Duration</th></tr>
{{range .Examples}}<tr><td>{{.Description}}</td><td class="{{.Status}}">{{.Status}}</td><td>{{.Duration}}</td></tr>
{{end}}</table>
{{end}}
{{if .Failures}}<h2>Failures</h2>
{{range .Failures}}<h3>{{.FullDescription}}</h3>
<pre>{{.Message}}</pre>
{{end}}{{end}}
</body>
</html>
`
