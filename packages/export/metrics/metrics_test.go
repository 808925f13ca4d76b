package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/abdul-hamid-achik/kernspec/packages/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Unix(1700000000, 0).UTC()

type fakeExporter struct {
	got []*Aggregate
	err error
}

func (f *fakeExporter) Export(agg *Aggregate) error {
	f.got = append(f.got, agg)
	return f.err
}

func (f *fakeExporter) Name() string { return "fake" }

func sampleAggregate() *Aggregate {
	return &Aggregate{
		Release:       "5.10.0",
		Examples:      4,
		Passed:        2,
		Failed:        1,
		Pending:       1,
		DurationMs:    1500,
		P50DurationMs: 10,
		P95DurationMs: 200,
		MaxDurationMs: 250,
		Timestamp:     fixedTime,
	}
}

func TestDurations(t *testing.T) {
	d := NewDurations()
	assert.Equal(t, time.Duration(0), d.Quantile(50))
	assert.Equal(t, time.Duration(0), d.Max())

	for i := 1; i <= 100; i++ {
		d.Record(time.Duration(i) * time.Millisecond)
	}
	d.Record(0)
	d.Record(2 * time.Hour)

	assert.Equal(t, int64(102), d.Count())
	assert.InDelta(t, float64(50*time.Millisecond), float64(d.Quantile(50)), float64(time.Millisecond))
	assert.InDelta(t, float64(time.Hour), float64(d.Max()), float64(time.Hour)/500)
}

func TestListener(t *testing.T) {
	ok := &fakeExporter{}
	broken := &fakeExporter{err: errors.New("backend down")}

	l, err := NewListener(host.Static{ReleaseValue: "5.10.0\n", PlatformValue: "Linux ci\n"}, nil, broken, ok)
	require.NoError(t, err)
	l.now = func() time.Time { return fixedTime }

	r := event.NewReporter([]event.Listener{l})
	require.NoError(t, r.ExampleFinished(&event.Example{Status: event.StatusPassed, Duration: 10 * time.Millisecond}))
	require.NoError(t, r.ExampleFinished(&event.Example{Status: event.StatusPending}))
	require.NoError(t, r.ExampleFinished(&event.Example{Status: event.StatusFailed, Duration: 30 * time.Millisecond}))
	require.NoError(t, r.Finish(2*time.Second))

	require.Len(t, ok.got, 1)
	require.Len(t, broken.got, 1)
	agg := ok.got[0]
	assert.Equal(t, "5.10.0", agg.Release)
	assert.Equal(t, "Linux ci", agg.Platform)
	assert.Equal(t, 3, agg.Examples)
	assert.Equal(t, 1, agg.Passed)
	assert.Equal(t, 1, agg.Failed)
	assert.Equal(t, 1, agg.Pending)
	assert.Equal(t, 2000.0, agg.DurationMs)
	assert.InDelta(t, 30.0, agg.MaxDurationMs, 0.1)
	assert.Equal(t, fixedTime, agg.Timestamp)
}

func TestNewListener_ReleaseError(t *testing.T) {
	_, err := NewListener(host.NewCommandProvider(host.WithReleaseCommand("false")), nil)
	assert.Error(t, err)
}

func TestDataDogExporter(t *testing.T) {
	var received datadogPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("DD-API-KEY"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewDataDogExporter(
		WithDataDogAPIKey("secret"),
		WithDataDogEndpoint(server.URL),
		WithDataDogTags([]string{"team:kernel"}),
	)
	require.NoError(t, d.Export(sampleAggregate()))

	values := make(map[string]float64)
	for _, m := range received.Series {
		assert.Equal(t, []string{"kernel_release:5.10.0", "team:kernel"}, m.Tags)
		require.Len(t, m.Points, 1)
		require.Len(t, m.Points[0], 2)
		assert.Equal(t, float64(fixedTime.Unix()), m.Points[0][0])
		values[m.Metric] = m.Points[0][1].(float64)
	}

	assert.Equal(t, map[string]float64{
		"kernspec.examples.total":   4,
		"kernspec.examples.passed":  2,
		"kernspec.examples.failed":  1,
		"kernspec.examples.pending": 1,
		"kernspec.duration.total":   1500,
		"kernspec.duration.p50":     10,
		"kernspec.duration.p95":     200,
		"kernspec.duration.max":     250,
	}, values)
}

func TestDataDogExporter_Site(t *testing.T) {
	d := NewDataDogExporter(WithDataDogSite("datadoghq.eu"))
	assert.Equal(t, "https://api.datadoghq.eu/api/v1/series", d.endpoint)
}

func TestDataDogExporter_NoAPIKey(t *testing.T) {
	t.Setenv("DD_API_KEY", "")
	err := NewDataDogExporter().Export(sampleAggregate())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestDataDogExporter_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["Forbidden"]}`))
	}))
	defer server.Close()

	err := NewDataDogExporter(WithDataDogAPIKey("bad"), WithDataDogEndpoint(server.URL)).Export(sampleAggregate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Forbidden")
}

func TestJSONExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "metrics.json")
	var buf bytes.Buffer

	j := NewJSONExporter(WithJSONFile(path), WithJSONWriter(&buf), WithJSONPretty(false))
	require.NoError(t, j.Export(sampleAggregate()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))

	var got Aggregate
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *sampleAggregate(), got)
}

func TestPrometheusExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "kernspec.prom")
	var buf bytes.Buffer

	p := NewPrometheusExporter(WithPrometheusFile(path), WithPrometheusWriter(&buf))
	require.NoError(t, p.Export(sampleAggregate()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))

	out := string(data)
	assert.Contains(t, out, "# TYPE kernspec_examples gauge\n")
	assert.Contains(t, out, `kernspec_examples{kernel_release="5.10.0",status="failed"} 1`+"\n")
	assert.Contains(t, out, `kernspec_run_duration_ms{kernel_release="5.10.0"} 1500.00`+"\n")
	assert.Contains(t, out, `kernspec_example_duration_ms{kernel_release="5.10.0",quantile="0.95"} 200.00`+"\n")
	assert.Contains(t, out, `kernspec_last_run_timestamp_seconds{kernel_release="5.10.0"} 1700000000`+"\n")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed away")
}

func TestPrometheusExporter_EscapesRelease(t *testing.T) {
	var buf bytes.Buffer
	agg := sampleAggregate()
	agg.Release = `6.1.0 "rt"`

	require.NoError(t, NewPrometheusExporter(WithPrometheusWriter(&buf)).Export(agg))
	assert.Contains(t, buf.String(), `kernel_release="6.1.0 \"rt\""`)
}
