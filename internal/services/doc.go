// Package services defines shared utilities consumed by the conversion
// strategies, the dispatcher, and the watcher.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper so startup failures
//     (configuration, permissions, missing tools) and per-job failures
//     (invalid media, stability, cleanup) can be told apart with errors.Is.
//
// Use these helpers when adding strategy logic so error handling and
// observability stay uniform across the pipeline.
package services
