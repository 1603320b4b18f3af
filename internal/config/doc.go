// Package config loads, normalizes, and validates sysdaemon configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and resolves the lock, pid, and log path templates for
// the configured daemon name. The Config type centralizes every knob the
// daemon engine and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, parsed durations, and clear validation errors.
package config
