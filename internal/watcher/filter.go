package watcher

import "path/filepath"

// nameFilter decides from a base name whether a created file is converted.
// Ignore patterns win over include patterns; no include patterns means all.
type nameFilter struct {
	include []string
	ignore  []string
}

func (f nameFilter) allow(name string) bool {
	for _, pattern := range f.ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, pattern := range f.include {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
