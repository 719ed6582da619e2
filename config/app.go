package config

import (
	"time"

	"github.com/kbukum/linetally/validation"
)

// ServiceName names the command in config lookups and telemetry.
const ServiceName = "linetally"

// Defaults.
const (
	DefaultPollInterval      = 500 * time.Millisecond
	DefaultMaxLineLength     = 1 << 20
	DefaultTelemetryEndpoint = "localhost:4318"
	DefaultTelemetryInterval = 15 * time.Second
)

// AppConfig is the complete command configuration.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Source        SourceConfig    `yaml:"source" mapstructure:"source"`
	Telemetry     TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// SourceConfig controls how the input file is read.
type SourceConfig struct {
	// PollInterval is the sleep between releasing and reopening the file in
	// stream mode.
	PollInterval    time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" validate:"gt=0"`
	ResetOnTruncate bool          `yaml:"reset_on_truncate" mapstructure:"reset_on_truncate"`
	MaxLineLength   int           `yaml:"max_line_length" mapstructure:"max_line_length" validate:"gte=1"`
}

// TelemetryConfig controls OTLP export of traces and metrics.
type TelemetryConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true,omitempty,hostname_port"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// defaults are registered with the loader so a key that is absent from
// every layer still decodes to its documented value. Booleans that default
// to true can only be expressed here.
func defaults() map[string]any {
	return map[string]any{
		"name":                     ServiceName,
		"environment":              "development",
		"source.poll_interval":     DefaultPollInterval.String(),
		"source.reset_on_truncate": false,
		"source.max_line_length":   DefaultMaxLineLength,
		"telemetry.enabled":        false,
		"telemetry.endpoint":       DefaultTelemetryEndpoint,
		"telemetry.insecure":       true,
		"telemetry.interval":       DefaultTelemetryInterval.String(),
		"telemetry.sample_rate":    1.0,
	}
}

// ApplyDefaults fills zero values, for configs built in code.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Source.PollInterval == 0 {
		c.Source.PollInterval = DefaultPollInterval
	}
	if c.Source.MaxLineLength == 0 {
		c.Source.MaxLineLength = DefaultMaxLineLength
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = DefaultTelemetryEndpoint
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = DefaultTelemetryInterval
	}
}

// Validate checks the whole configuration.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}

// Load reads the configuration with defaults, file and environment layers,
// then applies defaults and validates it. Errors carry the INVALID_CONFIG code.
func Load(opts ...LoaderOption) (*AppConfig, error) {
	cfg := &AppConfig{}
	opts = append([]LoaderOption{WithDefaults(defaults())}, opts...)
	if err := LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
