package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mediaconv/internal/config"
	"mediaconv/internal/deps"
	"mediaconv/internal/history"
	"mediaconv/internal/logging"
	"mediaconv/internal/metrics"
	"mediaconv/internal/services"
	"mediaconv/internal/watcher"
)

// ErrAlreadyRunning reports that another daemon holds the instance lock.
var ErrAlreadyRunning = errors.New("another mediaconv daemon is already running")

const logPointerName = "mediaconv.log"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the watcher in the foreground and blocks until SIGINT/SIGTERM,
// or until the watcher stops on its own. Queued jobs finish before Run
// returns.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "ensure directories", "", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := uuid.NewString()
	stamp := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.General.LogDir, fmt.Sprintf("mediaconv-%s.log", stamp))

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	logger = logger.With(logging.String(logging.FieldRunID, runID))
	daemonLog := logging.NewComponentLogger(logger, "daemon")

	if err := ensureCurrentLogPointer(cfg.General.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logPointerName, err)
	}
	if removed := logging.CleanupOldLogs(daemonLog, cfg.General.LogDir, "mediaconv-*.log", cfg.Logging.RetentionDays, logPath); removed > 0 {
		daemonLog.Debug("pruned old run logs", logging.Int("removed", removed))
	}

	lock, err := acquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			daemonLog.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	if err := writePIDFile(cfg.PIDPath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.PIDPath())

	logDependencySnapshot(daemonLog, cfg)

	m := metrics.New()
	watchOpts := []watcher.Option{watcher.WithMetrics(m)}
	if path := cfg.HistoryPath(); path != "" {
		store, err := history.Open(path)
		if err != nil {
			logging.WarnWithContext(daemonLog, "job history unavailable", "history_open_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "finished jobs will not be recorded"),
			)
		} else {
			watchOpts = append(watchOpts, watcher.WithHistory(store), watcher.WithCloser(store))
		}
	}

	w := watcher.New(cfg, logger, watchOpts...)
	runCtx := services.WithRunID(signalCtx, runID)
	err = supervise(runCtx, w, cfg.General.MetricsBind, m, logger)
	daemonLog.Info("mediaconv daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return err
}

// supervise runs the watcher and, when bind is set, the metrics endpoint.
// The endpoint stops once the watcher returns; a listener failure stops the
// watcher.
func supervise(ctx context.Context, w *watcher.Watcher, bind string, m *metrics.Metrics, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	g.Go(func() error {
		defer stopServe()
		return w.Start(gctx)
	})
	if strings.TrimSpace(bind) != "" {
		g.Go(func() error {
			return metrics.Serve(serveCtx, bind, m.Handler(), logger)
		})
	}
	return g.Wait()
}

func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
	}
	return lock, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logPointerName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("strategy", cfg.StrategyKind()),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
