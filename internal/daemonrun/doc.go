// Package daemonrun wires configuration, logging, the single-instance lock,
// job history, metrics, and the directory watcher into the foreground
// daemon run by `mediaconv watch`.
package daemonrun
