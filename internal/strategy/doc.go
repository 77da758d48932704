// Package strategy turns a detected file into a converted one.
//
// A Job captures the source, destination, archive policy, and output format
// at creation. Execute drives a Strategy through its stages and reports the
// result as an Outcome tag instead of an error: stability, probe, and convert
// failures all route to OnError, which removes partial output; success routes
// to OnSuccess, which leaves, deletes, or archives the source. Build wires the
// ffmpeg and drapto variants from configuration.
package strategy
