// Package config handles configuration loading and management for kernspec.
//
// It provides functionality for:
//   - Loading configuration from .kernspec.yaml, .kernspec.yml or kernspec.yaml
//   - Validating the file against an embedded JSON schema
//   - Default configuration values and merging of overrides
package config
