// Package config handles YAML configuration loading, environment
// variable expansion, and structural validation for parley.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Log controls process-wide logging.
	Log LogConfig `yaml:"log,omitempty"`

	// Telemetry controls OpenTelemetry trace export.
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "provider.anthropic").
	// Only listed modules are loaded.
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects log verbosity and output encoding.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string `yaml:"level,omitempty"`

	// Format is one of text, json. Default text.
	Format string `yaml:"format,omitempty"`
}

// TelemetryConfig configures the OTLP trace exporter. Disabled unless
// an endpoint is set.
type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS for the exporter connection.
	Insecure bool `yaml:"insecure,omitempty"`

	// ServiceName overrides the reported service name. Default "parley".
	ServiceName string `yaml:"service_name,omitempty"`
}
