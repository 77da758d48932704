// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: answers "is this a readable media container", returning a nil
//     Result for files ffprobe rejects
//
// Inspect executes ffprobe and returns the parsed Result. Commands run in
// their own process group so a terminal interrupt never reaches them.
package ffprobe
