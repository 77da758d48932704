package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrPermission           = errors.New("permission denied")
	ErrNotADirectory        = errors.New("not a directory")
	ErrSameDirectory        = errors.New("same directory")
	ErrExternalToolNotFound = errors.New("external tool not found")
	ErrExternalTool         = errors.New("external tool error")
	ErrInvalidMedia         = errors.New("invalid media")
	ErrStabilityWait        = errors.New("stability wait failed")
	ErrCleanup              = errors.New("cleanup failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short, stable label for the marker carried by err. It is used
// for metric labels and history rows.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrNotADirectory):
		return "not_a_directory"
	case errors.Is(err, ErrSameDirectory):
		return "same_directory"
	case errors.Is(err, ErrExternalToolNotFound):
		return "tool_not_found"
	case errors.Is(err, ErrInvalidMedia):
		return "invalid_media"
	case errors.Is(err, ErrStabilityWait):
		return "stability"
	case errors.Is(err, ErrCleanup):
		return "cleanup"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
}

// IsStartupFailure reports whether err belongs to the class of errors that
// abort startup before any watching begins.
func IsStartupFailure(err error) bool {
	for _, marker := range []error{ErrConfiguration, ErrPermission, ErrNotADirectory, ErrSameDirectory, ErrExternalToolNotFound} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
