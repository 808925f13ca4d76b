package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PrometheusExporter writes run metrics in the Prometheus text format. A file
// target is replaced atomically so the node_exporter textfile collector never
// reads a partial file.
type PrometheusExporter struct {
	writer   io.Writer
	filePath string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

// WithPrometheusFile writes the metrics to path, usually a *.prom file in the
// textfile collector directory
func WithPrometheusFile(path string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.filePath = path
	}
}

// NewPrometheusExporter creates a new Prometheus text exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the name of the exporter
func (p *PrometheusExporter) Name() string {
	return "prometheus"
}

// Export writes agg to the configured file and writer
func (p *PrometheusExporter) Export(agg *Aggregate) error {
	var buf bytes.Buffer
	writeMetrics(&buf, agg)

	if p.filePath != "" {
		if err := writeFileAtomic(p.filePath, buf.Bytes()); err != nil {
			return err
		}
	}
	if p.writer != nil {
		if _, err := p.writer.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// writeMetrics renders agg without timestamps; the textfile collector rejects them
func writeMetrics(w io.Writer, agg *Aggregate) {
	labels := fmt.Sprintf(`kernel_release="%s"`, escapeLabel(agg.Release))

	fmt.Fprintf(w, "# HELP kernspec_examples Examples in the last run by status\n")
	fmt.Fprintf(w, "# TYPE kernspec_examples gauge\n")
	fmt.Fprintf(w, "kernspec_examples{%s,status=\"passed\"} %d\n", labels, agg.Passed)
	fmt.Fprintf(w, "kernspec_examples{%s,status=\"failed\"} %d\n", labels, agg.Failed)
	fmt.Fprintf(w, "kernspec_examples{%s,status=\"pending\"} %d\n", labels, agg.Pending)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP kernspec_run_duration_ms Duration of the last run in milliseconds\n")
	fmt.Fprintf(w, "# TYPE kernspec_run_duration_ms gauge\n")
	fmt.Fprintf(w, "kernspec_run_duration_ms{%s} %.2f\n", labels, agg.DurationMs)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP kernspec_example_duration_ms Example duration in milliseconds\n")
	fmt.Fprintf(w, "# TYPE kernspec_example_duration_ms gauge\n")
	fmt.Fprintf(w, "kernspec_example_duration_ms{%s,quantile=\"0.50\"} %.2f\n", labels, agg.P50DurationMs)
	fmt.Fprintf(w, "kernspec_example_duration_ms{%s,quantile=\"0.95\"} %.2f\n", labels, agg.P95DurationMs)
	fmt.Fprintf(w, "kernspec_example_duration_ms{%s,quantile=\"max\"} %.2f\n", labels, agg.MaxDurationMs)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP kernspec_last_run_timestamp_seconds Time the last run finished\n")
	fmt.Fprintf(w, "# TYPE kernspec_last_run_timestamp_seconds gauge\n")
	fmt.Fprintf(w, "kernspec_last_run_timestamp_seconds{%s} %d\n", labels, agg.Timestamp.Unix())
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
