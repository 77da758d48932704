package preflight

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"mediaconv/internal/config"
	"mediaconv/internal/logging"
	"mediaconv/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// ValidateDirectories checks the input, output, and archive directories
// before watching starts. Missing output and archive directories are created
// when their parent is writable. Existence is always checked before the
// directories are compared, so a missing directory never reports as equal.
func ValidateDirectories(cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "directories", "config unavailable", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	input := cfg.InputFolder()
	if err := requireDirectory("input", input, writeAccess); err != nil {
		return err
	}

	output := cfg.OutputFolder()
	if err := ensureDirectory(logger, "output", output); err != nil {
		return err
	}
	if err := rejectSame(input, output, "output"); err != nil {
		return err
	}

	policy := cfg.ArchivePolicy()
	if policy.Mode != config.ArchiveMove {
		return nil
	}
	if err := ensureDirectory(logger, "archive", policy.Dir); err != nil {
		return err
	}
	return rejectSame(input, policy.Dir, "archive")
}

func ensureDirectory(logger *slog.Logger, label, path string) error {
	missing, err := creatable(label, path)
	if err != nil || !missing {
		return err
	}
	if err := os.Mkdir(path, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return services.Wrap(services.ErrPermission, "preflight", label, "create "+path, err)
	}
	logger.Info("created directory",
		logging.String("role", label),
		logging.String("path", path),
	)
	return requireDirectory(label, path, writeAccess)
}

func rejectSame(input, other, label string) error {
	same, err := sameDirectory(input, other)
	if err != nil {
		return services.Wrap(services.ErrPermission, "preflight", label, "", err)
	}
	if same {
		return services.Wrap(services.ErrSameDirectory, "preflight", label, fmt.Sprintf("%s and %s are the same directory", input, other), nil)
	}
	return nil
}

// RunAll reports every directory check for display without creating anything.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{checkExisting("Input directory", cfg.InputFolder())}
	results = append(results, checkCreatable("Output directory", "output", cfg.OutputFolder()))

	policy := cfg.ArchivePolicy()
	switch policy.Mode {
	case config.ArchiveMove:
		results = append(results, checkCreatable("Archive directory", "archive", policy.Dir))
	case config.ArchiveDelete:
		results = append(results, Result{Name: "Archive policy", Passed: true, Detail: "delete source after conversion"})
	default:
		results = append(results, Result{Name: "Archive policy", Passed: true, Detail: "leave source in place"})
	}

	results = append(results, checkDistinct(cfg.InputFolder(), cfg.OutputFolder(), "Input/output distinct"))
	if policy.Mode == config.ArchiveMove {
		results = append(results, checkDistinct(cfg.InputFolder(), policy.Dir, "Input/archive distinct"))
	}
	return results
}

func checkExisting(name, path string) Result {
	if err := requireDirectory("input", path, writeAccess); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func checkCreatable(name, label, path string) Result {
	missing, err := creatable(label, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if missing {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func checkDistinct(input, other, name string) Result {
	if _, err := os.Stat(input); err != nil {
		return Result{Name: name, Detail: "skipped (input unavailable)"}
	}
	if _, err := os.Stat(other); err != nil {
		return Result{Name: name, Passed: true, Detail: "target not created yet"}
	}
	same, err := sameDirectory(input, other)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if same {
		return Result{Name: name, Detail: "resolve to the same directory"}
	}
	return Result{Name: name, Passed: true, Detail: "distinct"}
}
