package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"mediaconv/internal/logging"
	"mediaconv/internal/strategy"
)

// DefaultWorkers is used when New is given a non-positive worker count.
const DefaultWorkers = 2

// ErrClosed is returned by Submit after Shutdown has begun.
var ErrClosed = errors.New("dispatcher closed")

// Handler runs one job. It is called from a worker goroutine.
type Handler func(ctx context.Context, job *strategy.Job)

// Stats is a point-in-time view of the dispatcher.
type Stats struct {
	Workers   int
	Pending   int
	Running   int
	Completed int
}

// Dispatcher runs jobs on a fixed set of workers in submission order.
// Submit never blocks; the queue is unbounded. Shutdown drains the queue.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
	ctx     context.Context
	workers int

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []*strategy.Job
	closed    bool
	running   int
	completed int

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New starts workers goroutines that pass jobs to handler. Handlers receive
// a context detached from parent's cancellation, so an interrupt never
// cancels a job in flight.
func New(parent context.Context, workers int, handler Handler, logger *slog.Logger) *Dispatcher {
	if parent == nil {
		parent = context.Background()
	}
	if workers < 1 {
		workers = DefaultWorkers
	}
	d := &Dispatcher{
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "dispatcher"),
		ctx:     context.WithoutCancel(parent),
		workers: workers,
	}
	d.cond = sync.NewCond(&d.mu)
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work(i)
	}
	d.logger.Debug("dispatcher started", logging.Int("workers", workers))
	return d
}

// Submit enqueues job. It returns ErrClosed after Shutdown.
func (d *Dispatcher) Submit(job *strategy.Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.queue = append(d.queue, job)
	d.cond.Signal()
	return nil
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. It is safe to call more than once.
func (d *Dispatcher) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		pending := len(d.queue)
		d.cond.Broadcast()
		d.mu.Unlock()

		d.logger.Info("dispatcher draining", logging.Int("pending", pending))
		d.wg.Wait()
		d.logger.Info("dispatcher stopped", logging.Int("completed", d.Stats().Completed))
	})
	d.wg.Wait()
}

// Stats reports queue depth and worker activity.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Workers:   d.workers,
		Pending:   len(d.queue),
		Running:   d.running,
		Completed: d.completed,
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for {
		job, ok := d.next()
		if !ok {
			return
		}
		d.run(id, job)
	}
}

// next blocks until a job is available or the dispatcher is closed and empty.
func (d *Dispatcher) next() (*strategy.Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.queue) == 0 {
		return nil, false
	}
	job := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	d.running++
	return job, true
}

func (d *Dispatcher) run(worker int, job *strategy.Job) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(d.logger, "job handler panicked", "handler_panic",
				logging.Int("worker", worker),
				logging.String(logging.FieldJobID, job.ID()),
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
		}
		d.mu.Lock()
		d.running--
		d.completed++
		d.mu.Unlock()
	}()
	d.handler(d.ctx, job)
}
