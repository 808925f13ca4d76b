package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/kernspec/packages/core/config"
	"github.com/abdul-hamid-achik/kernspec/packages/event"
	"github.com/abdul-hamid-achik/kernspec/packages/export/metrics"
	"github.com/abdul-hamid-achik/kernspec/packages/history"
	"github.com/abdul-hamid-achik/kernspec/packages/host"
	"github.com/abdul-hamid-achik/kernspec/packages/notify"
	"github.com/abdul-hamid-achik/kernspec/packages/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Output format names accepted by --format
const (
	FormatRelease  = "release"
	FormatProgress = "progress"
	FormatJSON     = "json"
	FormatJUnit    = "junit"
	FormatTAP      = "tap"
	FormatHTML     = "html"
)

var formatNames = []string{FormatRelease, FormatProgress, FormatJSON, FormatJUnit, FormatTAP, FormatHTML}

// formatSpec is one --format value: a formatter name and an optional file
type formatSpec struct {
	Name string
	Path string
}

// parseFormats parses name[=path] values. A missing path means stdout.
func parseFormats(values []string) ([]formatSpec, error) {
	specs := make([]formatSpec, 0, len(values))
	for _, v := range values {
		name, path, _ := strings.Cut(strings.TrimSpace(v), "=")
		name = strings.ToLower(strings.TrimSpace(name))
		path = strings.TrimSpace(path)

		known := false
		for _, n := range formatNames {
			if n == name {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown format %q (valid: %s)", name, strings.Join(formatNames, ", "))
		}
		specs = append(specs, formatSpec{Name: name, Path: path})
	}
	if len(specs) == 0 {
		specs = append(specs, formatSpec{Name: FormatRelease})
	}
	return specs, nil
}

// sessionFlags are the rendering flags shared by run and test
type sessionFlags struct {
	formats       []string
	release       string
	platform      string
	history       bool
	historyDB     string
	notifyOn      string
	slackWebhook  string
	slackChannel  string
	teamsWebhook  string
	metricsFile   string
	promFile      string
	datadogAPIKey string
	datadogSite   string
	datadogTags   []string
}

func addSessionFlags(cmd *cobra.Command, f *sessionFlags) {
	cmd.Flags().StringSliceVarP(&f.formats, "format", "f", splitList(getEnvString("KERNSPEC_FORMAT", "")), "Output format name[=path]: release, progress, json, junit, tap, html (env: KERNSPEC_FORMAT)")
	cmd.Flags().StringVar(&f.release, "release", getEnvString("KERNSPEC_RELEASE", ""), "Use this kernel release instead of running the release command (env: KERNSPEC_RELEASE)")
	cmd.Flags().StringVar(&f.platform, "platform", getEnvString("KERNSPEC_PLATFORM", ""), "Use this platform string instead of running the platform command (env: KERNSPEC_PLATFORM)")
	cmd.Flags().BoolVar(&f.history, "history", getEnvBool("KERNSPEC_HISTORY", false), "Record the run in the history database (env: KERNSPEC_HISTORY)")
	cmd.Flags().StringVar(&f.historyDB, "history-db", getEnvString("KERNSPEC_HISTORY_DB", ""), "History database path (env: KERNSPEC_HISTORY_DB)")
	cmd.Flags().StringVar(&f.notifyOn, "notify-on", getEnvString("KERNSPEC_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: KERNSPEC_NOTIFY_ON)")
	cmd.Flags().StringVar(&f.slackWebhook, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	cmd.Flags().StringVar(&f.slackChannel, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	cmd.Flags().StringVar(&f.teamsWebhook, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", getEnvString("KERNSPEC_METRICS_FILE", ""), "Write run metrics as JSON to this file (env: KERNSPEC_METRICS_FILE)")
	cmd.Flags().StringVar(&f.promFile, "prometheus-file", getEnvString("KERNSPEC_PROMETHEUS_FILE", ""), "Write run metrics in Prometheus text format to this file (env: KERNSPEC_PROMETHEUS_FILE)")
	cmd.Flags().StringVar(&f.datadogAPIKey, "datadog-api-key", getEnvString("DD_API_KEY", ""), "Push run metrics to DataDog with this API key (env: DD_API_KEY)")
	cmd.Flags().StringVar(&f.datadogSite, "datadog-site", getEnvString("DD_SITE", ""), "DataDog site, e.g. datadoghq.eu (env: DD_SITE)")
	cmd.Flags().StringSliceVar(&f.datadogTags, "datadog-tags", splitList(getEnvString("DD_TAGS", "")), "Extra DataDog tags as key:value (env: DD_TAGS)")

	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	_ = cmd.RegisterFlagCompletionFunc("notify-on", completeNotifyOn)
}

// apply layers the flags over the file configuration
func (f *sessionFlags) apply(cfg *config.Config) *config.Config {
	override := &config.Config{
		Formats:  f.formats,
		Release:  f.release,
		Platform: f.platform,
		History:  config.HistoryConfig{Path: f.historyDB},
		Notify: config.NotifyConfig{
			On:           f.notifyOn,
			SlackWebhook: f.slackWebhook,
			SlackChannel: f.slackChannel,
			TeamsWebhook: f.teamsWebhook,
		},
		Metrics: config.MetricsConfig{
			File:           f.metricsFile,
			PrometheusFile: f.promFile,
			DataDogAPIKey:  f.datadogAPIKey,
			DataDogSite:    f.datadogSite,
			DataDogTags:    f.datadogTags,
		},
	}
	if noColorFlag {
		override.NoColor = config.BoolPtr(true)
	}
	if f.history {
		override.History.Enabled = config.BoolPtr(true)
	}
	return cfg.Merge(override)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, configError(err)
	}
	return cfg, nil
}

// newHost builds the provider shared by every listener of a session. A nil
// env runs the host commands with the current environment.
func newHost(cfg *config.Config, env []string) host.Provider {
	opts := []host.CommandOption{
		host.WithReleaseCommand(cfg.Commands.Release...),
		host.WithPlatformCommand(cfg.Commands.Platform...),
	}
	if env != nil {
		opts = append(opts, host.WithEnv(env))
	}
	p := host.NewCommandProvider(opts...)
	return host.NewCached(host.Override{
		Provider:      p,
		ReleaseValue:  cfg.Release,
		PlatformValue: cfg.Platform,
	})
}

// session owns a reporter, its listeners and everything they write to
type session struct {
	reporter *event.Reporter
	store    *history.Store
	closers  []io.Closer
	logger   *zap.Logger
}

// newSession wires the configured listeners, in format order, followed by
// the history recorder, the metrics exporters and the notifiers. Formats
// written to a file are never colored.
func newSession(ctx context.Context, cfg *config.Config, h host.Provider, stdout io.Writer, logger *zap.Logger) (_ *session, err error) {
	s := &session{reporter: event.NewReporter(nil), logger: logger}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	release, err := h.Release()
	if err != nil {
		return nil, fmt.Errorf("reading kernel release: %w", err)
	}
	release = strings.TrimSpace(release)

	specs, err := parseFormats(cfg.Formats)
	if err != nil {
		return nil, usageError(err)
	}
	for _, spec := range specs {
		w, noColor := stdout, cfg.GetNoColor()
		if spec.Path != "" {
			noColor = true
			f, err := createOutput(spec.Path)
			if err != nil {
				return nil, err
			}
			s.closers = append(s.closers, f)
			w = f
		}
		l, err := newFormatter(spec.Name, w, h, release, noColor)
		if err != nil {
			return nil, err
		}
		s.reporter.Register(l)
	}

	previousPassed := true
	if cfg.GetHistoryEnabled() {
		s.store, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("opening history: %w", err)
		}
		last, err := s.store.LastRun(ctx, release)
		switch {
		case err == nil:
			previousPassed = last.Passed()
		case !errors.Is(err, history.ErrNotFound):
			return nil, fmt.Errorf("reading history: %w", err)
		}

		rec, err := history.NewRecorder(s.store, h)
		if err != nil {
			return nil, err
		}
		logger.Debug("recording run", zap.String("run_id", rec.RunID()), zap.String("db", cfg.History.Path))
		s.reporter.Register(rec)
	}

	if exporters := newExporters(cfg); len(exporters) > 0 {
		l, err := metrics.NewListener(h, logger, exporters...)
		if err != nil {
			return nil, err
		}
		s.reporter.Register(l)
	}

	if notifiers := newNotifiers(cfg); len(notifiers) > 0 {
		notifyOn, err := notify.ParseNotifyOn(cfg.Notify.On)
		if err != nil {
			return nil, usageError(err)
		}
		m := notify.NewManager(notifyOn, previousPassed, notifiers...)
		s.reporter.Register(notify.NewListener(m, h, logger))
	}

	return s, nil
}

func newNotifiers(cfg *config.Config) []notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notify.SlackWebhook != "" {
		var opts []notify.SlackOption
		if cfg.Notify.SlackChannel != "" {
			opts = append(opts, notify.WithSlackChannel(cfg.Notify.SlackChannel))
		}
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notify.SlackWebhook, opts...))
	}
	if cfg.Notify.TeamsWebhook != "" {
		notifiers = append(notifiers, notify.NewTeamsNotifier(cfg.Notify.TeamsWebhook))
	}
	return notifiers
}

func newExporters(cfg *config.Config) []metrics.Exporter {
	var exporters []metrics.Exporter
	if cfg.Metrics.File != "" {
		exporters = append(exporters, metrics.NewJSONExporter(metrics.WithJSONFile(cfg.Metrics.File)))
	}
	if cfg.Metrics.PrometheusFile != "" {
		exporters = append(exporters, metrics.NewPrometheusExporter(metrics.WithPrometheusFile(cfg.Metrics.PrometheusFile)))
	}
	if cfg.Metrics.DataDogAPIKey != "" {
		opts := []metrics.DataDogOption{
			metrics.WithDataDogAPIKey(cfg.Metrics.DataDogAPIKey),
			metrics.WithDataDogTags(cfg.Metrics.DataDogTags),
		}
		if cfg.Metrics.DataDogSite != "" {
			opts = append(opts, metrics.WithDataDogSite(cfg.Metrics.DataDogSite))
		}
		if cfg.Metrics.DataDogEndpoint != "" {
			opts = append(opts, metrics.WithDataDogEndpoint(cfg.Metrics.DataDogEndpoint))
		}
		exporters = append(exporters, metrics.NewDataDogExporter(opts...))
	}
	return exporters
}

func newFormatter(name string, w io.Writer, h host.Provider, release string, noColor bool) (event.Listener, error) {
	switch name {
	case FormatProgress:
		return output.NewProgressFormatter(output.WithWriter(w), output.WithNoColor(noColor)), nil
	case FormatJSON:
		return output.NewJSONFormatter(output.JSONWithWriter(w), output.JSONWithRelease(release)), nil
	case FormatJUnit:
		return output.NewJUnitFormatter(output.JUnitWithWriter(w), output.JUnitWithRelease(release)), nil
	case FormatTAP:
		return output.NewTAPFormatter(output.TAPWithWriter(w), output.TAPWithRelease(release)), nil
	case FormatHTML:
		return output.NewHTMLFormatter(output.HTMLWithWriter(w), output.HTMLWithRelease(release)), nil
	default:
		return output.NewReleaseFormatter(w, h, output.ReleaseWithNoColor(noColor))
	}
}

func createOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create output file: %w", err)
	}
	return f, nil
}

// result maps the finished run onto an exit status
func (s *session) result() error {
	if s.reporter.Failed() {
		return errTestsFailed
	}
	return nil
}

// Close releases output files and the history database
func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
