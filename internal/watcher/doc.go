// Package watcher turns files appearing in the input directory into
// conversion jobs.
//
// A Watcher moves from StateIdle to StateObserving once the directory guard
// passes, the strategy is built, and the fsnotify subscription is in place.
// Only create events (which include moves into the directory) produce jobs;
// removals and renames are logged. Every watch_timeout the loop checks the
// input directory still exists and stops with an error when it does not.
// Stop, or cancelling the Start context, drains queued jobs before
// returning; running conversions are never interrupted.
package watcher
