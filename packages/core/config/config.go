package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Config represents the kernspec configuration
type Config struct {
	// Formats lists output formats as name or name=path
	Formats  []string       `yaml:"formats,omitempty"`
	NoColor  *bool          `yaml:"noColor,omitempty"`
	Release  string         `yaml:"release,omitempty"`
	Platform string         `yaml:"platform,omitempty"`
	Commands CommandsConfig `yaml:"commands,omitempty"`
	History  HistoryConfig  `yaml:"history,omitempty"`
	Notify   NotifyConfig   `yaml:"notify,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// CommandsConfig overrides the host commands used to identify the machine
type CommandsConfig struct {
	Release  []string `yaml:"release,omitempty"`
	Platform []string `yaml:"platform,omitempty"`
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// NotifyConfig controls run notifications
type NotifyConfig struct {
	On           string `yaml:"on,omitempty"`
	SlackWebhook string `yaml:"slackWebhook,omitempty"`
	SlackChannel string `yaml:"slackChannel,omitempty"`
	TeamsWebhook string `yaml:"teamsWebhook,omitempty"`
}

// MetricsConfig controls where run aggregates are exported. The DataDog API
// key is never read from the file.
type MetricsConfig struct {
	File            string   `yaml:"file,omitempty"`
	PrometheusFile  string   `yaml:"prometheusFile,omitempty"`
	DataDogAPIKey   string   `yaml:"-"`
	DataDogSite     string   `yaml:"datadogSite,omitempty"`
	DataDogEndpoint string   `yaml:"datadogEndpoint,omitempty"`
	DataDogTags     []string `yaml:"datadogTags,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetHistoryEnabled returns whether runs are recorded, defaulting to false
func (c *Config) GetHistoryEnabled() bool {
	return getBool(c.History.Enabled, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".kernspec.yaml",
	".kernspec.yml",
	"kernspec.yaml",
}

// ErrInvalid wraps schema violations
var ErrInvalid = errors.New("invalid configuration")

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	override := &Config{}
	if err := yaml.Unmarshal(data, override); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return DefaultConfig().Merge(override), nil
}

// Validate checks raw YAML against the configuration schema
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if len(other.Formats) > 0 {
		result.Formats = other.Formats
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.Release != "" {
		result.Release = other.Release
	}
	if other.Platform != "" {
		result.Platform = other.Platform
	}
	if len(other.Commands.Release) > 0 {
		result.Commands.Release = other.Commands.Release
	}
	if len(other.Commands.Platform) > 0 {
		result.Commands.Platform = other.Commands.Platform
	}
	if other.History.Enabled != nil {
		result.History.Enabled = other.History.Enabled
	}
	if other.History.Path != "" {
		result.History.Path = other.History.Path
	}
	if other.Notify.On != "" {
		result.Notify.On = other.Notify.On
	}
	if other.Notify.SlackWebhook != "" {
		result.Notify.SlackWebhook = other.Notify.SlackWebhook
	}
	if other.Notify.SlackChannel != "" {
		result.Notify.SlackChannel = other.Notify.SlackChannel
	}
	if other.Notify.TeamsWebhook != "" {
		result.Notify.TeamsWebhook = other.Notify.TeamsWebhook
	}
	if other.Metrics.File != "" {
		result.Metrics.File = other.Metrics.File
	}
	if other.Metrics.PrometheusFile != "" {
		result.Metrics.PrometheusFile = other.Metrics.PrometheusFile
	}
	if other.Metrics.DataDogAPIKey != "" {
		result.Metrics.DataDogAPIKey = other.Metrics.DataDogAPIKey
	}
	if other.Metrics.DataDogEndpoint != "" {
		result.Metrics.DataDogEndpoint = other.Metrics.DataDogEndpoint
	}
	if other.Metrics.DataDogSite != "" {
		result.Metrics.DataDogSite = other.Metrics.DataDogSite
	}
	if len(other.Metrics.DataDogTags) > 0 {
		result.Metrics.DataDogTags = other.Metrics.DataDogTags
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
