package fileutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"mediaconv/internal/services"
)

// WaitUntilStable blocks until two consecutive size samples of path, taken
// interval apart, are equal. There is no built-in upper bound: a file that
// keeps growing blocks until ctx ends. A failed size query (for example the
// file was deleted) ends the wait with an error.
func WaitUntilStable(ctx context.Context, path string, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	previous, err := fileSize(path)
	if err != nil {
		return services.Wrap(services.ErrStabilityWait, "prepare", "stat", path, err)
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return services.Wrap(services.ErrStabilityWait, "prepare", "wait", path, context.Cause(ctx))
		case <-timer.C:
		}

		current, err := fileSize(path)
		if err != nil {
			return services.Wrap(services.ErrStabilityWait, "prepare", "stat", path, err)
		}
		if current == previous {
			return nil
		}
		previous = current
		timer.Reset(interval)
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}
