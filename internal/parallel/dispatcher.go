// Package parallel provides a fixed-pool bulk-synchronous parallel-for.
//
// A Dispatcher provisions W workers once (W defaults to runtime.NumCPU) and
// then executes rounds: each call to Run distributes the indices [0, count)
// across the pool, every index is executed exactly once, and Run returns
// only after every worker has finished its last Execute for the round.
// The same pool serves any number of rounds until Finish tears it down, at
// which point each worker calls Cleanup exactly once and exits.
//
// With a single worker no goroutines are started: rounds execute on the
// calling goroutine in increasing index order and Finish calls Cleanup
// directly.
package parallel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paveg/dispatch/internal/errors"
	"github.com/paveg/dispatch/internal/monitoring"
	"github.com/paveg/dispatch/internal/validation"
)

// State is the externally observable lifecycle state of a Dispatcher.
type State int

const (
	// StateActive means rounds may be run.
	StateActive State = iota
	// StateFinished is terminal; workers have been told to exit.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Dispatcher executes indexed tasks on a fixed worker pool, one
// barrier-synchronized round at a time.
type Dispatcher struct {
	id      string
	name    string
	count   int
	workers int
	tasks   []Task // one per worker; shared tasks repeat the same value

	failFast      bool
	recoverPanics bool
	logger        *slog.Logger
	metrics       *monitoring.MetricsCollector
	globalMetrics bool // record into the process-wide collector

	// runMu serializes controllers so rounds never overlap.
	runMu sync.Mutex

	// mu guards everything below except the atomics.
	mu         sync.Mutex
	wake       *sync.Cond // workers wait here for a new generation or finish
	idleCond   *sync.Cond // the controller waits here for idle == workers
	generation uint64
	roundCount int64
	idle       int
	failure    error

	next     atomic.Int64 // claim counter
	finished atomic.Bool
	rounds   atomic.Uint64

	finishOnce sync.Once
	exited     sync.WaitGroup
	done       chan struct{}
}

// New creates a dispatcher that runs task over [0, count) on every Run.
// All workers share task, so its Execute must tolerate concurrent calls and
// its Cleanup is invoked once per worker.
func New(count int, task Task, opts ...Option) (*Dispatcher, error) {
	if err := validation.ValidateNotNil(task, "new", "task"); err != nil {
		return nil, err
	}
	return NewPerWorker(count, func(int) Task { return task }, opts...)
}

// NewPerWorker creates a dispatcher in which every worker owns the Task
// returned by factory(worker). Per-worker tasks may hold unsynchronized
// scratch state, which their Cleanup releases.
func NewPerWorker(count int, factory func(worker int) Task, opts ...Option) (*Dispatcher, error) {
	if err := validation.NewCompoundValidator(
		validation.NewNonNegativeValidator(count, "new", "count"),
		validation.NewNotNilValidator(factory, "new", "task factory"),
	).Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Dispatcher{
		id:            uuid.NewString(),
		name:          o.name,
		count:         count,
		workers:       o.poolSize(),
		failFast:      o.cfg.FailFast,
		recoverPanics: o.cfg.RecoverPanics,
		metrics:       o.metrics,
		globalMetrics: o.metrics == nil && o.cfg.MetricsCollection,
		done:          make(chan struct{}),
	}
	d.logger = o.logger.With("dispatcher", d.name, "id", d.id)
	d.wake = sync.NewCond(&d.mu)
	d.idleCond = sync.NewCond(&d.mu)

	d.tasks = make([]Task, d.workers)
	for w := range d.tasks {
		task := factory(w)
		if err := validation.ValidateNotNil(task, "new", "task factory result"); err != nil {
			for _, built := range d.tasks[:w] {
				built.Cleanup()
			}
			return nil, err
		}
		d.tasks[w] = task
	}

	if d.workers > 1 {
		d.exited.Add(d.workers)
		for w := range d.workers {
			go d.work(w, d.tasks[w])
		}
		go func() {
			d.exited.Wait()
			close(d.done)
		}()
	}

	d.logger.Debug("dispatcher started", "workers", d.workers, "count", count)
	return d, nil
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int { return d.workers }

// Count returns the index count used by Run.
func (d *Dispatcher) Count() int { return d.count }

// Name returns the label given with WithName.
func (d *Dispatcher) Name() string { return d.name }

// ID returns the unique instance id attached to log records.
func (d *Dispatcher) ID() string { return d.id }

// Rounds returns the number of rounds started so far.
func (d *Dispatcher) Rounds() uint64 { return d.rounds.Load() }

// State reports whether the dispatcher can still run rounds.
func (d *Dispatcher) State() State {
	if d.finished.Load() {
		return StateFinished
	}
	return StateActive
}

// Run executes one round over [0, Count()).
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.RunN(ctx, d.count)
}

// RunN executes one round over [0, count) and blocks until it completes.
//
// If ctx is done before the round completes the dispatcher is finished, as
// if Finish had been called, and the returned error matches
// errors.ErrInterrupted. If tasks fail, the error of the first failure is
// returned after the round's barrier and the dispatcher remains usable.
// Calling RunN after Finish returns errors.ErrFinished.
func (d *Dispatcher) RunN(ctx context.Context, count int) error {
	if err := validation.ValidateNonNegative(count, "run", "count"); err != nil {
		return err
	}

	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.finished.Load() {
		return errors.ErrFinished
	}
	if err := ctx.Err(); err != nil {
		d.logger.Warn("round interrupted before start", "error", err)
		d.Finish()
		return errors.NewInterruptedError(err)
	}

	round := d.rounds.Add(1)
	start := time.Now()
	err := d.record(round, count, func() error {
		switch {
		case count == 0:
			return nil
		case d.workers == 1:
			return d.runSequential(ctx, count)
		default:
			return d.runParallel(ctx, count)
		}
	})

	switch {
	case err == nil:
		d.logger.Debug("round complete", "round", round, "count", count, "duration", time.Since(start))
	case errors.IsInterrupted(err):
		d.logger.Warn("round interrupted", "round", round, "error", err)
	default:
		d.logger.Warn("round failed", "round", round, "error", err)
	}
	return err
}

func (d *Dispatcher) record(round uint64, count int, fn func() error) error {
	switch {
	case d.metrics != nil:
		return d.metrics.RecordRound(d.name, round, count, d.workers, fn)
	case d.globalMetrics:
		return monitoring.RecordGlobalRound(d.name, round, count, d.workers, fn)
	default:
		return fn()
	}
}

// runSequential executes the round on the calling goroutine.
func (d *Dispatcher) runSequential(ctx context.Context, count int) error {
	var first error
	for i := range count {
		if err := ctx.Err(); err != nil {
			d.Finish()
			return errors.NewInterruptedError(err)
		}
		if err := d.execute(d.tasks[0], i); err != nil {
			if d.failFast {
				return err
			}
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// runParallel opens a new generation and waits for every worker to go idle.
func (d *Dispatcher) runParallel(ctx context.Context, count int) error {
	stop := context.AfterFunc(ctx, d.Finish)

	d.mu.Lock()
	d.next.Store(0)
	d.idle = 0
	d.failure = nil
	d.roundCount = int64(count)
	d.generation++
	d.wake.Broadcast()

	for d.idle < d.workers && !d.finished.Load() {
		d.idleCond.Wait()
	}
	interrupted := d.idle < d.workers
	failure := d.failure
	d.mu.Unlock()

	// A cancel that lands after the barrier still finishes the dispatcher,
	// so the round must be reported as interrupted.
	if !stop() && ctx.Err() != nil {
		interrupted = true
	}
	if interrupted {
		cause := ctx.Err()
		if cause == nil {
			cause = errors.ErrFinished
		}
		return errors.NewInterruptedError(cause)
	}
	return failure
}

// work is the body of one pool goroutine.
func (d *Dispatcher) work(worker int, task Task) {
	defer d.exited.Done()
	defer d.cleanup(worker, task)

	var seen uint64
	for {
		d.mu.Lock()
		for d.generation == seen && !d.finished.Load() {
			d.wake.Wait()
		}
		if d.finished.Load() {
			d.mu.Unlock()
			return
		}
		seen = d.generation
		count := d.roundCount
		d.mu.Unlock()

		d.drain(task, count)

		d.mu.Lock()
		d.idle++
		if d.idle == d.workers {
			d.idleCond.Signal()
		}
		d.mu.Unlock()
	}
}

// drain claims and executes indices until the round is exhausted or the
// dispatcher is finished.
func (d *Dispatcher) drain(task Task, count int64) {
	for !d.finished.Load() {
		index, ok := d.claim(count)
		if !ok {
			return
		}
		if err := d.execute(task, index); err != nil {
			d.fail(err, count)
		}
	}
}

// claim takes the next unclaimed index. The counter never passes count.
func (d *Dispatcher) claim(count int64) (int, bool) {
	for {
		i := d.next.Load()
		if i >= count {
			return 0, false
		}
		if d.next.CompareAndSwap(i, i+1) {
			return int(i), true
		}
	}
}

// fail records the first failure of the round. With fail-fast the claim
// counter jumps to count so no further indices are handed out.
func (d *Dispatcher) fail(err error, count int64) {
	d.mu.Lock()
	if d.failure == nil {
		d.failure = err
	}
	d.mu.Unlock()

	if d.failFast {
		d.next.Store(count)
	}
}

func (d *Dispatcher) execute(task Task, index int) (err error) {
	if d.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				err = errors.NewPanicError(index, r)
			}
		}()
	}
	if execErr := task.Execute(index); execErr != nil {
		return errors.NewTaskError(index, execErr)
	}
	return nil
}

func (d *Dispatcher) cleanup(worker int, task Task) {
	if d.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("cleanup panicked", "worker", worker, "panic", r)
			}
		}()
	}
	task.Cleanup()
}

// Finish tears the dispatcher down. With more than one worker it signals
// every worker and returns without waiting; each worker calls Cleanup once
// and exits, after which Done is closed. With a single worker Cleanup runs
// synchronously before Finish returns. Further calls are no-ops.
func (d *Dispatcher) Finish() {
	d.finishOnce.Do(func() {
		d.mu.Lock()
		d.finished.Store(true)
		d.wake.Broadcast()
		d.idleCond.Broadcast()
		d.mu.Unlock()

		if d.workers == 1 {
			d.cleanup(0, d.tasks[0])
			close(d.done)
		}
		d.logger.Debug("dispatcher finished", "rounds", d.rounds.Load())
	})
}

// Done returns a channel closed once every worker has cleaned up and exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until Done is closed or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ParallelFor runs fn over [0, count) once on a fresh pool and tears the
// pool down afterwards, waiting for every worker to exit.
func ParallelFor(ctx context.Context, count int, fn func(index int) error, opts ...Option) error {
	if err := validation.ValidateNotNil(fn, "parallel_for", "function"); err != nil {
		return err
	}

	d, err := New(count, TaskFuncs{ExecuteFn: fn}, opts...)
	if err != nil {
		return err
	}
	runErr := d.Run(ctx)
	d.Finish()
	<-d.Done()
	return runErr
}
