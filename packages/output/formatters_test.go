package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// runSample drives l through a small run: one package with a passing,
// a failing and a pending example.
func runSample(t *testing.T, l event.Listener) {
	t.Helper()

	pkg := &event.Group{Description: "github.com/acme/auth"}
	nested := &event.Group{Description: "TestToken", Parent: pkg}
	r := event.NewReporter([]event.Listener{l})

	require.NoError(t, r.GroupStarted(pkg))
	require.NoError(t, r.ExampleFinished(&event.Example{
		Description:     "TestLogin",
		FullDescription: "github.com/acme/auth TestLogin",
		Group:           pkg,
		Status:          event.StatusPassed,
		Duration:        20 * time.Millisecond,
	}))
	require.NoError(t, r.GroupStarted(nested))
	require.NoError(t, r.ExampleFinished(&event.Example{
		Description:     "bad",
		FullDescription: "github.com/acme/auth TestToken/bad",
		Group:           nested,
		Status:          event.StatusFailed,
		Duration:        5 * time.Millisecond,
		Exception:       &event.Exception{Message: "auth_test.go:12: expected 401, got 200"},
	}))
	require.NoError(t, r.GroupFinished(nested))
	require.NoError(t, r.ExampleFinished(&event.Example{
		Description:     "TestRotate",
		FullDescription: "github.com/acme/auth TestRotate",
		Group:           pkg,
		Status:          event.StatusPending,
	}))
	require.NoError(t, r.GroupFinished(pkg))
	require.NoError(t, r.Finish(2*time.Second))
}

func TestProgressFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter(WithWriter(&buf), WithNoColor(true))
	runSample(t, f)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, ".F\n\nFinished in 2 seconds\n"))
	assert.Contains(t, out, "3 examples, 1 failure, 1 pending\n")
	assert.Contains(t, out, "Failures:\n")
	assert.Contains(t, out, "  1) github.com/acme/auth TestToken/bad\n")
	assert.Contains(t, out, "     auth_test.go:12: expected 401, got 200\n")
}

func TestProgressFormatter_AllPassed(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter(WithWriter(&buf), WithNoColor(true))

	r := event.NewReporter([]event.Listener{f})
	require.NoError(t, r.ExampleFinished(&event.Example{Status: event.StatusPassed}))
	require.NoError(t, r.Finish(time.Second))

	assert.Equal(t, ".\n\nFinished in 1 second\n1 example, 0 failures\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(
		JSONWithWriter(&buf),
		JSONWithRelease("5.10.0"),
		JSONWithClock(func() time.Time { return fixedTime }),
	)
	runSample(t, f)

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "5.10.0", out.Release)
	assert.Equal(t, JSONSummary{Total: 3, Passed: 1, Failed: 1, Pending: 1}, out.Summary)
	assert.Equal(t, float64(2000), out.Duration)
	assert.Equal(t, "2024-03-01T12:00:00Z", out.Time)
	require.Len(t, out.Examples, 3)
	assert.Equal(t, "failed", out.Examples[1].Status)
	assert.Equal(t, "github.com/acme/auth", out.Examples[1].Group)
	assert.Equal(t, "auth_test.go:12: expected 401, got 200", out.Examples[1].Message)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(
		JUnitWithWriter(&buf),
		JUnitWithRelease("5.10.0"),
		JUnitWithClock(func() time.Time { return fixedTime }),
	)
	runSample(t, f)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal([]byte(strings.TrimPrefix(out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")), &suites))

	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Skipped)
	require.Len(t, suites.TestSuites, 1)

	suite := suites.TestSuites[0]
	assert.Equal(t, "github.com/acme/auth", suite.Name)
	require.NotNil(t, suite.Properties)
	assert.Equal(t, "5.10.0", suite.Properties.Properties[0].Value)
	require.Len(t, suite.TestCases, 3)
	require.NotNil(t, suite.TestCases[1].Failure)
	assert.Equal(t, "auth_test.go:12: expected 401, got 200", suite.TestCases[1].Failure.Message)
	assert.NotNil(t, suite.TestCases[2].Skipped)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf), TAPWithRelease("5.10.0"))
	runSample(t, f)

	expected := "TAP version 13\n" +
		"1..3\n" +
		"# release 5.10.0\n" +
		"ok 1 - github.com/acme/auth TestLogin\n" +
		"not ok 2 - github.com/acme/auth TestToken/bad\n" +
		"  ---\n" +
		"  message: \"auth_test.go:12: expected 401, got 200\"\n" +
		"  severity: fail\n" +
		"  ...\n" +
		"ok 3 - github.com/acme/auth TestRotate # SKIP\n" +
		"\n"
	assert.Equal(t, expected, buf.String())
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"line\nnext"`, escapeYAML("line\nnext"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
}

func TestHTMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewHTMLFormatter(HTMLWithWriter(&buf), HTMLWithRelease("5.10.0"), HTMLWithClock(func() time.Time { return fixedTime }))
	runSample(t, f)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>[5.10.0] kernspec report</title>")
	assert.Contains(t, out, "<h1>[5.10.0] Finished in 2 seconds</h1>")
	assert.Contains(t, out, "3 examples, 1 failures, 1 pending. Generated 2024-03-01 12:00:00.")
	assert.Contains(t, out, "<h2>github.com/acme/auth (1 failed)</h2>")
	assert.Contains(t, out, `<td>bad</td><td class="failed">failed</td>`)
	assert.Contains(t, out, "<h3>github.com/acme/auth TestToken/bad</h3>")
	assert.Contains(t, out, "<pre>auth_test.go:12: expected 401, got 200</pre>")
}

func TestHTMLFormatter_EscapesOutput(t *testing.T) {
	var buf bytes.Buffer
	r := event.NewReporter([]event.Listener{NewHTMLFormatter(HTMLWithWriter(&buf))})
	require.NoError(t, r.ExampleFinished(&event.Example{
		Description:     "TestTags",
		FullDescription: "pkg TestTags",
		Group:           &event.Group{Description: "pkg"},
		Status:          event.StatusFailed,
		Exception:       &event.Exception{Message: "got <script>alert(1)</script>"},
	}))
	require.NoError(t, r.Finish(time.Second))

	out := buf.String()
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "got &lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, out, "<title>kernspec report</title>")
}
