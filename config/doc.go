// Package config loads the linetally configuration.
//
// Values come from, lowest precedence first: built-in defaults, a YAML file
// (--config, or ./linetally.yml, ./config.yml and friends), and environment
// variables, optionally seeded from a .env file. Nested keys map from
// upper-case env names, so SOURCE_POLL_INTERVAL=2s sets source.poll_interval.
//
//	cfg, err := config.Load(config.WithConfigFile("linetally.yml"))
//
// Load applies defaults and validates; failures are INVALID_CONFIG errors.
package config
