package config

import (
	"maps"
	"strings"
)

// FormatKey names the container entry of an output format. Its value also
// supplies the destination file extension.
const FormatKey = "format"

// Format is the set of named encoding options handed to the transcoder.
type Format map[string]string

// Container returns the container name, lowercased and without a leading dot.
func (f Format) Container() string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(f[FormatKey])), ".")
}

// Extension returns the destination file extension including the dot.
func (f Format) Extension() string {
	if c := f.Container(); c != "" {
		return "." + c
	}
	return ""
}

// Clone returns an independent copy.
func (f Format) Clone() Format {
	if f == nil {
		return Format{}
	}
	return maps.Clone(f)
}

// ArchiveMode enumerates what happens to a source file after a successful conversion.
type ArchiveMode int

const (
	// ArchiveNone leaves the source in place.
	ArchiveNone ArchiveMode = iota
	// ArchiveDelete removes the source.
	ArchiveDelete
	// ArchiveMove moves the source into ArchivePolicy.Dir.
	ArchiveMove
)

func (m ArchiveMode) String() string {
	switch m {
	case ArchiveDelete:
		return "delete"
	case ArchiveMove:
		return "move"
	default:
		return "none"
	}
}

// ArchivePolicy pairs an archive mode with its target directory.
type ArchivePolicy struct {
	Mode ArchiveMode
	Dir  string
}
