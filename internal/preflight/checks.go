package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"mediaconv/internal/services"
)

const writeAccess = unix.R_OK | unix.W_OK | unix.X_OK

// requireDirectory checks that path is an existing directory with the given access.
func requireDirectory(label, path string, mode uint32) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotADirectory, "preflight", label, path+" does not exist", nil)
		}
		return services.Wrap(services.ErrPermission, "preflight", label, path, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrNotADirectory, "preflight", label, path+" is not a directory", nil)
	}
	if err := unix.Access(path, mode); err != nil {
		return services.Wrap(services.ErrPermission, "preflight", label, path, err)
	}
	return nil
}

// creatable reports whether path exists as a writable directory, or is
// missing with a writable parent directory. missing is false when path
// already exists.
func creatable(label, path string) (missing bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		return false, requireDirectory(label, path, writeAccess)
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return false, services.Wrap(services.ErrPermission, "preflight", label, path, statErr)
	}
	parent := filepath.Dir(path)
	if err := requireDirectory(label, parent, writeAccess); err != nil {
		return true, services.Wrap(services.ErrPermission, "preflight", label, "cannot create "+path, err)
	}
	return true, nil
}

// sameDirectory compares two existing directories after resolving symlinks.
func sameDirectory(a, b string) (bool, error) {
	realA, err := filepath.EvalSymlinks(a)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", a, err)
	}
	realB, err := filepath.EvalSymlinks(b)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", b, err)
	}
	return filepath.Clean(realA) == filepath.Clean(realB), nil
}
