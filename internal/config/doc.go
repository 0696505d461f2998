// Package config loads, normalizes, and validates bespoke configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BESPOKE_REDIS_PASSWORD. The Config type centralizes every knob the two
// command-line tools need: store connection parameters, external tool
// binaries, worker pool size, animation and document settings, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors. The
// resulting *Config is passed explicitly to the components that need it.
package config
