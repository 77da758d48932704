package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mediaconv/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
}

// New constructs a slog logger using the provided options. The returned
// closer releases any log files opened for the logger; it is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}
	writer, closer, err := openWriters(outputs)
	if err != nil {
		return nil, nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(writer, levelVar, addSource)
	case "console":
		handler = newPrettyHandler(writer, levelVar, addSource)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(handler), closer, nil
}

// NewFromConfig creates a logger writing to stdout and, when logPath is set,
// to that file as well.
func NewFromConfig(cfg *config.Config, logPath string) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}

	outputPaths := []string{"stdout"}
	if strings.TrimSpace(logPath) != "" {
		outputPaths = append(outputPaths, logPath)
	}

	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputPaths,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type fileCloser struct {
	files []*os.File
}

func (c *fileCloser) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, f := range c.files {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	c.files = nil
	return errors.Join(errs...)
}

func openWriters(paths []string) (io.Writer, io.Closer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	closer := &fileCloser{}

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				_ = closer.Close()
				return nil, nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				_ = closer.Close()
				return nil, nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			closer.files = append(closer.files, file)
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, closer, nil
	case 1:
		return writers[0], closer, nil
	default:
		return io.MultiWriter(writers...), closer, nil
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
