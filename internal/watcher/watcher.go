package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mediaconv/internal/config"
	"mediaconv/internal/dispatch"
	"mediaconv/internal/history"
	"mediaconv/internal/logging"
	"mediaconv/internal/metrics"
	"mediaconv/internal/preflight"
	"mediaconv/internal/services"
	"mediaconv/internal/strategy"
)

// ErrStopped is returned by Start on a watcher that has already stopped.
var ErrStopped = errors.New("watcher stopped")

const defaultHealthInterval = time.Second

// State is the watcher lifecycle position.
type State int

const (
	StateIdle State = iota
	StateObserving
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateObserving:
		return "observing"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder receives every finished job.
type Recorder interface {
	Record(ctx context.Context, job *strategy.Job, result strategy.Result)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithStrategy bypasses the strategy factory.
func WithStrategy(s strategy.Strategy) Option {
	return func(w *Watcher) {
		w.strategy = s
	}
}

// WithRecorder adds a recorder for finished jobs.
func WithRecorder(r Recorder) Option {
	return func(w *Watcher) {
		if r != nil {
			w.recorders = append(w.recorders, r)
		}
	}
}

// WithHistory records finished jobs in store.
func WithHistory(store *history.Store) Option {
	return func(w *Watcher) {
		w.history = store
	}
}

// WithMetrics publishes events, queue depth, and job outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// WithCloser registers a resource, such as the history store, that Stop
// closes after the dispatcher has drained.
func WithCloser(c io.Closer) Option {
	return func(w *Watcher) {
		w.closer = c
	}
}

// Watcher observes the input directory and hands every new regular file to
// the dispatcher as a job. It owns the dispatcher lifecycle.
type Watcher struct {
	cfg       *config.Config
	logger    *slog.Logger
	convLog   *slog.Logger
	filter    nameFilter
	strategy  strategy.Strategy
	recorders []Recorder
	history   *history.Store
	metrics   *metrics.Metrics
	closer    io.Closer

	mu         sync.Mutex
	state      State
	fsw        *fsnotify.Watcher
	dispatcher *dispatch.Dispatcher
	quit       chan struct{}
	loopDone   chan struct{}
	stopOnce   sync.Once
}

// New constructs an idle watcher for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "observer"),
		convLog: logging.NewComponentLogger(logger, "converter"),
		quit:    make(chan struct{}),
	}
	if cfg != nil {
		w.filter = nameFilter{include: cfg.Patterns(), ignore: cfg.IgnorePatterns()}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State reports the lifecycle position.
func (w *Watcher) State() State {
	if w == nil {
		return StateStopped
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stats reports the dispatcher snapshot, zero before Start.
func (w *Watcher) Stats() dispatch.Stats {
	if w == nil {
		return dispatch.Stats{}
	}
	w.mu.Lock()
	d := w.dispatcher
	w.mu.Unlock()
	if d == nil {
		return dispatch.Stats{}
	}
	return d.Stats()
}

// Start validates directories, builds the strategy, starts the dispatcher,
// and watches the input directory until ctx is done, Stop is called, or the
// input directory disappears. Queued jobs are drained before Start returns.
// Startup failures are returned before anything is watched.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil || w.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "watcher", "start", "config unavailable", nil)
	}

	w.mu.Lock()
	if w.state != StateIdle {
		w.mu.Unlock()
		return ErrStopped
	}
	w.mu.Unlock()

	fsw, d, err := w.setup(ctx)
	if err != nil {
		w.Stop()
		return err
	}

	w.mu.Lock()
	if w.state == StateStopped {
		w.mu.Unlock()
		_ = fsw.Close()
		d.Shutdown()
		return nil
	}
	w.state = StateObserving
	w.fsw = fsw
	w.dispatcher = d
	w.loopDone = make(chan struct{})
	loopDone := w.loopDone
	w.mu.Unlock()

	w.logger.Info("watching input directory",
		logging.String("input", w.cfg.InputFolder()),
		logging.String("output", w.cfg.OutputFolder()),
		logging.String("archive", w.cfg.ArchivePolicy().Mode.String()),
		logging.Int("workers", d.Stats().Workers),
		logging.String(logging.FieldEventType, "watch_started"),
	)

	err = w.loop(ctx, fsw, d, loopDone)
	w.Stop()
	return err
}

func (w *Watcher) setup(ctx context.Context) (*fsnotify.Watcher, *dispatch.Dispatcher, error) {
	if err := preflight.ValidateDirectories(w.cfg, w.logger); err != nil {
		return nil, nil, err
	}

	s := w.strategy
	kind := "custom"
	if s == nil {
		built, err := strategy.Build(w.cfg.StrategyKind(), w.cfg, w.logger)
		if err != nil {
			return nil, nil, err
		}
		s = built
	}
	if named, ok := s.(interface{ Kind() string }); ok {
		kind = named.Kind()
	}

	recorders := append([]Recorder(nil), w.recorders...)
	if w.history != nil {
		recorders = append(recorders, history.NewRecorder(w.history, kind, w.logger))
	}
	if w.metrics != nil {
		recorders = append(recorders, metrics.NewRecorder(w.metrics, kind))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.cfg.InputFolder()); err != nil {
		_ = fsw.Close()
		return nil, nil, services.Wrap(services.ErrPermission, "watcher", "subscribe", w.cfg.InputFolder(), err)
	}

	d := dispatch.New(ctx, w.cfg.WorkerCount(), w.handler(s, recorders), w.logger)
	return fsw, d, nil
}

func (w *Watcher) handler(s strategy.Strategy, recorders []Recorder) dispatch.Handler {
	return func(ctx context.Context, job *strategy.Job) {
		w.metrics.ObserveQueue(w.Stats())
		result := strategy.Execute(ctx, s, job, w.convLog)
		for _, r := range recorders {
			r.Record(ctx, job, result)
		}
		w.metrics.ObserveQueue(w.Stats())
	}
}

// Stop closes the fsnotify watcher, waits for the event loop, drains the
// dispatcher, and releases the registered closer. It is safe before Start,
// during Start, and more than once.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.state = StateStopped
		fsw := w.fsw
		d := w.dispatcher
		loopDone := w.loopDone
		w.mu.Unlock()

		close(w.quit)
		if fsw != nil {
			_ = fsw.Close()
		}
		if loopDone != nil {
			<-loopDone
		}
		if d != nil {
			d.Shutdown()
			w.metrics.ObserveQueue(d.Stats())
		}
		w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watch_stopped"))
		if w.closer != nil {
			_ = w.closer.Close()
		}
	})
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, d *dispatch.Dispatcher, done chan struct{}) error {
	defer close(done)

	interval := w.cfg.WatchTimeout()
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	input := w.cfg.InputFolder()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("interrupt received, draining queued jobs",
				logging.Int("pending", d.Stats().Pending),
				logging.Int("running", d.Stats().Running),
			)
			return nil
		case <-w.quit:
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return w.channelClosed("event")
			}
			if filepath.Clean(event.Name) == input && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return w.inputVanished(input)
			}
			w.handleEvent(event, d)
		case err, ok := <-fsw.Errors:
			if !ok {
				return w.channelClosed("error")
			}
			w.metrics.ObserveEvent("error")
			logging.WarnWithContext(w.logger, "filesystem notification error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file events may have been missed"),
			)
		case <-ticker.C:
			if info, err := os.Stat(input); err != nil || !info.IsDir() {
				return w.inputVanished(input)
			}
		}
	}
}

func (w *Watcher) channelClosed(which string) error {
	select {
	case <-w.quit:
		return nil
	default:
	}
	return services.Wrap(services.ErrExternalTool, "watcher", "notify", which+" channel closed", nil)
}

func (w *Watcher) inputVanished(input string) error {
	logging.ErrorWithContext(w.logger, "input directory disappeared", "watch_input_lost",
		logging.String("input", input),
		logging.String(logging.FieldErrorHint, "recreate the input directory and restart mediaconv"),
	)
	return services.Wrap(services.ErrNotADirectory, "watcher", "health", input+" is no longer available", nil)
}

func (w *Watcher) handleEvent(event fsnotify.Event, d *dispatch.Dispatcher) {
	switch {
	case event.Op&fsnotify.Create != 0:
		w.metrics.ObserveEvent("create")
		w.onCreate(event.Name, d)
	case event.Op&fsnotify.Remove != 0:
		w.metrics.ObserveEvent("remove")
		w.logger.Debug("file removed", logging.String("path", event.Name))
	case event.Op&fsnotify.Rename != 0:
		w.metrics.ObserveEvent("rename")
		w.logger.Debug("file moved out", logging.String("path", event.Name))
	}
}

func (w *Watcher) onCreate(path string, d *dispatch.Dispatcher) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.Debug("created entry vanished before inspection", logging.String("path", path), logging.Error(err))
		return
	}
	if !info.Mode().IsRegular() {
		w.logger.Debug("ignoring non-regular entry",
			logging.String("path", path),
			logging.String("mode", info.Mode().Type().String()),
		)
		return
	}
	if !w.filter.allow(filepath.Base(path)) {
		w.metrics.ObserveEvent("ignored")
		w.logger.Debug("ignoring file by name filter", logging.String("path", path))
		return
	}

	job := strategy.JobFromConfig(w.cfg, path)
	if err := d.Submit(job); err != nil {
		logging.WarnWithContext(w.logger, "job not queued", "job_rejected",
			logging.String(logging.FieldSource, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will not be converted until copied in again"),
		)
		return
	}
	w.metrics.ObserveQueue(d.Stats())
	w.logger.Info("file queued",
		logging.String(logging.FieldJobID, job.ID()),
		logging.String(logging.FieldSource, path),
		logging.String(logging.FieldDest, job.Dest()),
		logging.String(logging.FieldEventType, "job_queued"),
	)
}
