// Package config loads, normalizes, and validates mediaconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type exposes read-only
// accessors (InputFolder, OutputFolder, ArchivePolicy, OutputFormat,
// PollInterval, WorkerCount, EncoderBinary, ProberBinary) so the watcher,
// dispatcher, and strategy factory never look at raw fields.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a canonical output format, and clear validation errors.
package config
