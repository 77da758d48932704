package watcher

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"mediaconv/internal/config"
	"mediaconv/internal/media"
	"mediaconv/internal/media/ffprobe"
	"mediaconv/internal/services"
	"mediaconv/internal/strategy"
	"mediaconv/internal/testsupport"
)

// extProber treats .avi files as media and everything else as not media.
type extProber struct{}

func (extProber) Probe(_ context.Context, path string) (*ffprobe.Result, error) {
	if !strings.HasSuffix(path, ".avi") {
		return nil, nil
	}
	return &ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video"}}}, nil
}

type copyTranscoder struct{}

func (copyTranscoder) Convert(_ context.Context, req media.Request) iter.Seq2[media.Progress, error] {
	return media.OneShot(func(yield func(media.Progress, error) bool) {
		data, err := os.ReadFile(req.Source)
		if err == nil {
			err = os.WriteFile(req.Dest, data, 0o644)
		}
		if err != nil {
			yield(media.Progress{}, err)
			return
		}
		yield(media.Progress{Percent: 100, Done: true}, nil)
	})
}

type captureRecorder struct {
	mu      sync.Mutex
	results map[string]strategy.Result
}

func (c *captureRecorder) Record(_ context.Context, job *strategy.Job, result strategy.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = make(map[string]strategy.Result)
	}
	c.results[job.Name()] = result
}

func (c *captureRecorder) get(name string) (strategy.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.results[name]
	return result, ok
}

func (c *captureRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func startWatcher(t *testing.T, cfg *config.Config, opts ...Option) (*Watcher, <-chan error) {
	t.Helper()
	s := strategy.NewExternal("fake", extProber{}, copyTranscoder{}, nil, strategy.WithPollInterval(cfg.PollInterval()))
	w := New(cfg, nil, append([]Option{WithStrategy(s)}, opts...)...)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(context.Background())
	}()
	testsupport.WaitFor(t, 5*time.Second, "watcher to observe", func() bool {
		return w.State() == StateObserving
	})
	return w, errCh
}

func waitStart(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return")
		return nil
	}
}

func TestWatcherConvertsAndDeletesSource(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testsupport.NewConfig(t, testsupport.WithArchiveDelete())
	rec := &captureRecorder{}
	w, errCh := startWatcher(t, cfg, WithRecorder(rec))

	source := filepath.Join(cfg.InputFolder(), "movie.avi")
	testsupport.WriteFile(t, source, 4096)
	dest := filepath.Join(cfg.OutputFolder(), "movie.mp4")

	testsupport.WaitFor(t, 5*time.Second, "movie.avi to finish", func() bool {
		_, ok := rec.get("movie.avi")
		return ok
	})
	w.Stop()
	if err := waitStart(t, errCh); err != nil {
		t.Fatalf("Start returned %v", err)
	}

	result, _ := rec.get("movie.avi")
	if result.Outcome != strategy.OutcomeOK {
		t.Fatalf("expected ok outcome, got %s (%v)", result.Outcome, result.Err)
	}
	if !testsupport.Exists(dest) {
		t.Fatal("expected converted file in the output folder")
	}
	if testsupport.Exists(source) {
		t.Fatal("expected source to be deleted")
	}
	if w.State() != StateStopped {
		t.Fatalf("expected stopped state, got %s", w.State())
	}
}

func TestWatcherLeavesNonMediaUntouched(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testsupport.NewConfig(t, testsupport.WithArchiveDelete())
	rec := &captureRecorder{}
	w, errCh := startWatcher(t, cfg, WithRecorder(rec))

	junk := filepath.Join(cfg.InputFolder(), "junk.txt")
	testsupport.WriteFile(t, junk, 0)

	testsupport.WaitFor(t, 5*time.Second, "junk.txt to finish", func() bool {
		_, ok := rec.get("junk.txt")
		return ok
	})
	w.Stop()
	if err := waitStart(t, errCh); err != nil {
		t.Fatalf("Start returned %v", err)
	}

	result, _ := rec.get("junk.txt")
	if result.Outcome != strategy.OutcomeProbeFailed {
		t.Fatalf("expected probe failure, got %s", result.Outcome)
	}
	if !testsupport.Exists(junk) {
		t.Fatal("non-media source must stay in place")
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.OutputFolder(), "junk.*"))
	if len(matches) != 0 {
		t.Fatalf("expected no output for junk, got %v", matches)
	}
}

func TestWatcherIgnoresDirectoriesAndFilteredNames(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testsupport.NewConfig(t)
	rec := &captureRecorder{}
	w, errCh := startWatcher(t, cfg, WithRecorder(rec))

	if err := os.Mkdir(filepath.Join(cfg.InputFolder(), "season1.avi"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.InputFolder(), ".hidden.avi"), 16)
	testsupport.WriteFile(t, filepath.Join(cfg.InputFolder(), "download.part"), 16)
	testsupport.WriteFile(t, filepath.Join(cfg.InputFolder(), "marker.avi"), 16)

	testsupport.WaitFor(t, 5*time.Second, "marker.avi to finish", func() bool {
		_, ok := rec.get("marker.avi")
		return ok
	})
	w.Stop()
	if err := waitStart(t, errCh); err != nil {
		t.Fatalf("Start returned %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected only marker.avi to become a job, got %d jobs", rec.count())
	}
}

func TestWatcherStartupFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testsupport.NewConfig(t)
	if err := os.Remove(cfg.InputFolder()); err != nil {
		t.Fatalf("remove input: %v", err)
	}
	w := New(cfg, nil, WithStrategy(strategy.NewExternal("fake", extProber{}, copyTranscoder{}, nil)))
	err := w.Start(context.Background())
	if !errors.Is(err, services.ErrNotADirectory) {
		t.Fatalf("expected ErrNotADirectory, got %v", err)
	}
	if w.State() != StateStopped {
		t.Fatalf("expected stopped state, got %s", w.State())
	}
}

func TestWatcherStopsWhenInputRemoved(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testsupport.NewConfig(t)
	_, errCh := startWatcher(t, cfg)

	if err := os.RemoveAll(cfg.InputFolder()); err != nil {
		t.Fatalf("remove input: %v", err)
	}
	if err := waitStart(t, errCh); !errors.Is(err, services.ErrNotADirectory) {
		t.Fatalf("expected ErrNotADirectory, got %v", err)
	}
}

func TestWatcherContextCancelDrains(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testsupport.NewConfig(t)
	rec := &captureRecorder{}
	s := strategy.NewExternal("fake", extProber{}, copyTranscoder{}, nil, strategy.WithPollInterval(cfg.PollInterval()))
	w := New(cfg, nil, WithStrategy(s), WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(ctx)
	}()
	testsupport.WaitFor(t, 5*time.Second, "watcher to observe", func() bool {
		return w.State() == StateObserving
	})

	testsupport.WriteFile(t, filepath.Join(cfg.InputFolder(), "late.avi"), 1024)
	testsupport.WaitFor(t, 5*time.Second, "late.avi to be queued", func() bool {
		stats := w.Stats()
		return stats.Pending+stats.Running+stats.Completed > 0
	})
	cancel()

	if err := waitStart(t, errCh); err != nil {
		t.Fatalf("Start returned %v", err)
	}
	if result, ok := rec.get("late.avi"); !ok || result.Outcome != strategy.OutcomeOK {
		t.Fatalf("expected queued job to finish after interrupt, got %+v ok=%v", result, ok)
	}
}

func TestWatcherStopBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testsupport.NewConfig(t)
	closer := &countingCloser{}
	w := New(cfg, nil, WithCloser(closer))
	w.Stop()
	w.Stop()
	if err := w.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if closer.calls != 1 {
		t.Fatalf("expected closer called once, got %d", closer.calls)
	}
}

type countingCloser struct {
	calls int
}

func (c *countingCloser) Close() error {
	c.calls++
	return nil
}

func TestNameFilter(t *testing.T) {
	filter := nameFilter{include: []string{"*.avi", "*.mkv"}, ignore: []string{".*", "*.part"}}
	cases := map[string]bool{
		"movie.avi":      true,
		"show.mkv":       true,
		"notes.txt":      false,
		".movie.avi":     false,
		"movie.avi.part": false,
	}
	for name, want := range cases {
		if got := filter.allow(name); got != want {
			t.Fatalf("allow(%q) = %v, want %v", name, got, want)
		}
	}
	if !(nameFilter{}).allow("anything") {
		t.Fatal("empty filter should allow everything")
	}
}
