// Package metrics exposes Prometheus collectors for the conversion pipeline:
// jobs by outcome, job duration, watcher events, and the dispatcher's queue
// depth and running workers. Collectors live on a private registry served at
// /metrics when general.metrics_bind is set.
package metrics
