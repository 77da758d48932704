// Package preflight validates the directories mediaconv works with.
//
// ValidateDirectories is the startup guard the watcher runs before it
// subscribes to events: the input directory must exist and be writable, the
// output and archive directories are created when missing, and none of them
// may resolve (through symlinks) to the input directory. RunAll produces the
// same checks as display rows for the "mediaconv check" command and never
// touches the filesystem.
package preflight
