package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
)

// JUnit XML structures

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a top-level group (typically a package)
type JUnitTestSuite struct {
	XMLName    xml.Name         `xml:"testsuite"`
	Name       string           `xml:"name,attr"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Properties *JUnitProperties `xml:"properties,omitempty"`
	TestCases  []JUnitTestCase  `xml:"testcase"`
}

// JUnitProperties carries run metadata such as the kernel release
type JUnitProperties struct {
	Properties []JUnitProperty `xml:"property"`
}

type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitTestCase represents a single example
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test failure
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a pending example
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitFormatter formats examples as JUnit XML, one suite per top-level group
type JUnitFormatter struct {
	writer  io.Writer
	release string
	now     func() time.Time
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

// JUnitWithRelease records the kernel release as a suite property
func JUnitWithRelease(release string) JUnitOption {
	return func(f *JUnitFormatter) {
		f.release = release
	}
}

func JUnitWithClock(now func() time.Time) JUnitOption {
	return func(f *JUnitFormatter) {
		f.now = now
	}
}

func (f *JUnitFormatter) ExamplePassed(event.ExampleNotification) error { return nil }
func (f *JUnitFormatter) ExampleFailed(event.ExampleNotification) error { return nil }
func (f *JUnitFormatter) GroupStarted(event.GroupNotification) error    { return nil }
func (f *JUnitFormatter) GroupFinished(event.GroupNotification) error   { return nil }
func (f *JUnitFormatter) DumpFailures(event.ExamplesNotification) error { return nil }

// DumpSummary writes the JUnit XML document
func (f *JUnitFormatter) DumpSummary(n event.SummaryNotification) error {
	var suites []JUnitTestSuite
	index := make(map[string]int)

	for _, e := range n.Examples {
		name := groupName(e.Group)
		i, ok := index[name]
		if !ok {
			i = len(suites)
			index[name] = i
			suites = append(suites, JUnitTestSuite{Name: name, Properties: f.properties()})
		}
		suite := &suites[i]

		tc := JUnitTestCase{
			Name:      e.FullDescription,
			ClassName: name,
			Time:      e.Duration.Seconds(),
		}
		switch e.Status {
		case event.StatusFailed:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: firstLine(e.Message()),
				Type:    "Failure",
				Content: e.Message(),
			}
		case event.StatusPending:
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{}
		}
		suite.Tests++
		suite.Time += tc.Time
		suite.TestCases = append(suite.TestCases, tc)
	}

	root := JUnitTestSuites{
		Name:       "kernspec",
		Tests:      n.ExampleCount(),
		Failures:   n.FailureCount(),
		Skipped:    n.PendingCount(),
		Time:       n.Duration.Seconds(),
		Timestamp:  f.now().Format(time.RFC3339),
		TestSuites: suites,
	}

	if _, err := fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"); err != nil {
		return err
	}
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(root); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}

func (f *JUnitFormatter) properties() *JUnitProperties {
	if f.release == "" {
		return nil
	}
	return &JUnitProperties{Properties: []JUnitProperty{{Name: "kernel.release", Value: f.release}}}
}
