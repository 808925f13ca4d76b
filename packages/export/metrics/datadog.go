package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrNoAPIKey is returned by Export when no Datadog API key is configured
var ErrNoAPIKey = errors.New("DataDog API key not configured")

// DataDogExporter pushes run aggregates to the Datadog series API
type DataDogExporter struct {
	apiKey   string
	site     string // e.g., "datadoghq.com", "datadoghq.eu"
	endpoint string
	tags     []string
	prefix   string
	client   *http.Client
}

// DataDogOption is a functional option for DataDogExporter
type DataDogOption func(*DataDogExporter)

// WithDataDogAPIKey sets the DataDog API key
func WithDataDogAPIKey(apiKey string) DataDogOption {
	return func(d *DataDogExporter) {
		d.apiKey = apiKey
	}
}

// WithDataDogSite sets the DataDog site (e.g., "datadoghq.com", "datadoghq.eu")
func WithDataDogSite(site string) DataDogOption {
	return func(d *DataDogExporter) {
		d.site = site
	}
}

// WithDataDogEndpoint overrides the series URL derived from the site
func WithDataDogEndpoint(url string) DataDogOption {
	return func(d *DataDogExporter) {
		d.endpoint = url
	}
}

// WithDataDogTags sets additional tags for all metrics
func WithDataDogTags(tags []string) DataDogOption {
	return func(d *DataDogExporter) {
		d.tags = tags
	}
}

// WithDataDogPrefix sets a prefix for metric names
func WithDataDogPrefix(prefix string) DataDogOption {
	return func(d *DataDogExporter) {
		d.prefix = prefix
	}
}

// WithDataDogHTTPClient replaces the HTTP client
func WithDataDogHTTPClient(c *http.Client) DataDogOption {
	return func(d *DataDogExporter) {
		d.client = c
	}
}

// NewDataDogExporter creates a new DataDog metrics exporter
func NewDataDogExporter(opts ...DataDogOption) *DataDogExporter {
	d := &DataDogExporter{
		site:   "datadoghq.com",
		prefix: "kernspec",
		client: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(d)
	}

	// Try to get API key from environment if not set
	if d.apiKey == "" {
		d.apiKey = os.Getenv("DD_API_KEY")
	}
	if d.endpoint == "" {
		d.endpoint = fmt.Sprintf("https://api.%s/api/v1/series", d.site)
	}

	return d
}

// Name returns the name of the exporter
func (d *DataDogExporter) Name() string {
	return "datadog"
}

// datadogMetric represents a metric in DataDog format
type datadogMetric struct {
	Metric string   `json:"metric"`
	Type   string   `json:"type"`
	Points [][]any  `json:"points"`
	Tags   []string `json:"tags,omitempty"`
}

// datadogPayload is the payload sent to DataDog
type datadogPayload struct {
	Series []datadogMetric `json:"series"`
}

// Export pushes the example counts and duration gauges of one run
func (d *DataDogExporter) Export(agg *Aggregate) error {
	if d.apiKey == "" {
		return ErrNoAPIKey
	}

	now := float64(agg.Timestamp.Unix())
	tags := append([]string{"kernel_release:" + agg.Release}, d.tags...)

	point := func(name, kind string, value float64) datadogMetric {
		return datadogMetric{
			Metric: d.metricName(name),
			Type:   kind,
			Points: [][]any{{now, value}},
			Tags:   tags,
		}
	}

	series := []datadogMetric{
		point("examples.total", "count", float64(agg.Examples)),
		point("examples.passed", "count", float64(agg.Passed)),
		point("examples.failed", "count", float64(agg.Failed)),
		point("examples.pending", "count", float64(agg.Pending)),
		point("duration.total", "gauge", agg.DurationMs),
		point("duration.p50", "gauge", agg.P50DurationMs),
		point("duration.p95", "gauge", agg.P95DurationMs),
		point("duration.max", "gauge", agg.MaxDurationMs),
	}

	return d.sendMetrics(series)
}

func (d *DataDogExporter) metricName(name string) string {
	return d.prefix + "." + name
}

func (d *DataDogExporter) sendMetrics(series []datadogMetric) error {
	jsonData, err := json.Marshal(datadogPayload{Series: series})
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, d.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("DataDog API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
