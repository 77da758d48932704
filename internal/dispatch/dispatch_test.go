package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"mediaconv/internal/config"
	"mediaconv/internal/strategy"
)

func newJob(name string) *strategy.Job {
	return strategy.NewJob("/in/"+name, "/out", config.ArchivePolicy{}, config.Format{"format": "mp4"})
}

func TestDispatcherBoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	const workers, jobs = 3, 12
	var running, maxRunning, done atomic.Int32
	d := New(context.Background(), workers, func(ctx context.Context, job *strategy.Job) {
		now := running.Add(1)
		for {
			prev := maxRunning.Load()
			if now <= prev || maxRunning.CompareAndSwap(prev, now) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		running.Add(-1)
		done.Add(1)
	}, nil)

	for i := 0; i < jobs; i++ {
		if err := d.Submit(newJob(fmt.Sprintf("movie-%d.avi", i))); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	d.Shutdown()

	if got := done.Load(); got != jobs {
		t.Fatalf("expected %d completions, got %d", jobs, got)
	}
	if got := maxRunning.Load(); got > workers {
		t.Fatalf("expected at most %d concurrent jobs, saw %d", workers, got)
	}
	stats := d.Stats()
	if stats.Completed != jobs || stats.Pending != 0 || stats.Running != 0 || stats.Workers != workers {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDispatcherFIFOWithSingleWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var order []string
	release := make(chan struct{})
	d := New(context.Background(), 1, func(ctx context.Context, job *strategy.Job) {
		<-release
		mu.Lock()
		order = append(order, job.Name())
		mu.Unlock()
	}, nil)

	names := []string{"a.avi", "b.avi", "c.avi", "d.avi"}
	for _, name := range names {
		if err := d.Submit(newJob(name)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	close(release)
	d.Shutdown()

	if len(order) != len(names) {
		t.Fatalf("expected %d jobs, got %v", len(names), order)
	}
	for i := range names {
		if order[i] != names[i] {
			t.Fatalf("expected FIFO order %v, got %v", names, order)
		}
	}
}

func TestDispatcherSubmitAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(context.Background(), 2, func(context.Context, *strategy.Job) {}, nil)
	d.Shutdown()
	d.Shutdown()
	if err := d.Submit(newJob("late.avi")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDispatcherShutdownDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	var done atomic.Int32
	started := make(chan struct{}, 1)
	d := New(context.Background(), 1, func(context.Context, *strategy.Job) {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(10 * time.Millisecond)
		done.Add(1)
	}, nil)
	for i := 0; i < 5; i++ {
		if err := d.Submit(newJob(fmt.Sprintf("%d.avi", i))); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	<-started
	d.Shutdown()
	if done.Load() != 5 {
		t.Fatalf("expected queued jobs to drain, got %d", done.Load())
	}
}

func TestDispatcherRecoversHandlerPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	var done atomic.Int32
	d := New(context.Background(), 1, func(_ context.Context, job *strategy.Job) {
		if job.Name() == "bad.avi" {
			panic("handler exploded")
		}
		done.Add(1)
	}, nil)
	_ = d.Submit(newJob("bad.avi"))
	_ = d.Submit(newJob("good.avi"))
	d.Shutdown()

	if done.Load() != 1 {
		t.Fatal("expected the worker to survive a panic and run the next job")
	}
	if d.Stats().Completed != 2 {
		t.Fatalf("expected 2 completed, got %d", d.Stats().Completed)
	}
}

func TestDispatcherDetachesParentCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	parent, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr atomic.Value
	d := New(parent, 1, func(ctx context.Context, _ *strategy.Job) {
		sawErr.Store(fmt.Sprint(ctx.Err()))
	}, nil)
	_ = d.Submit(newJob("movie.avi"))
	d.Shutdown()

	if got := sawErr.Load(); got != "<nil>" {
		t.Fatalf("expected handler context to stay live, got %v", got)
	}
}

func TestDispatcherDefaultWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := New(context.Background(), 0, func(context.Context, *strategy.Job) {}, nil)
	defer d.Shutdown()
	if d.Stats().Workers != DefaultWorkers {
		t.Fatalf("expected %d workers, got %d", DefaultWorkers, d.Stats().Workers)
	}
}
