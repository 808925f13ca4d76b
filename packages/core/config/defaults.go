package config

import "github.com/abdul-hamid-achik/kernspec/packages/host"

// DefaultHistoryPath is where runs are recorded when history is enabled
const DefaultHistoryPath = ".kernspec/history.db"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Formats: []string{"release"},
		NoColor: BoolPtr(false),
		Commands: CommandsConfig{
			Release:  append([]string(nil), host.DefaultReleaseCommand...),
			Platform: append([]string(nil), host.DefaultPlatformCommand...),
		},
		History: HistoryConfig{
			Enabled: BoolPtr(false),
			Path:    DefaultHistoryPath,
		},
		Notify: NotifyConfig{
			On: "failure",
		},
	}
}
