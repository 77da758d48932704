// Package dispatch runs conversion jobs on a fixed pool of workers.
//
// Jobs wait in an unbounded FIFO so the event loop submitting them never
// blocks. Shutdown is a drain: it refuses new jobs and returns once every
// queued and running job has finished.
package dispatch
