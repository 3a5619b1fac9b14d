// Package dispatch provides a fixed-pool bulk-synchronous parallel-for.
// This package is the sole public API for the library.
//
// A Dispatcher owns W worker goroutines (W = runtime.NumCPU by default)
// provisioned once at construction. Each Run distributes the indices
// [0, count) across the pool and returns only after every index has been
// executed exactly once. Finish tears the pool down; every worker then calls
// its task's Cleanup exactly once.
//
//	d, err := dispatch.New(len(rows), dispatch.IndexFunc(func(i int) {
//		shade(rows[i])
//	}))
//	if err != nil {
//		return err
//	}
//	defer d.Finish()
//
//	for range frames {
//		if err := d.Run(ctx); err != nil {
//			return err
//		}
//	}
package dispatch

import (
	"context"
	"log/slog"

	"github.com/paveg/dispatch/internal/config"
	"github.com/paveg/dispatch/internal/errors"
	"github.com/paveg/dispatch/internal/monitoring"
	"github.com/paveg/dispatch/internal/parallel"
)

// Task is the unit of work executed once per index per round.
type Task = parallel.Task

// TaskFuncs adapts a pair of functions to Task.
type TaskFuncs = parallel.TaskFuncs

// IndexFunc adapts an infallible loop body to Task.
type IndexFunc = parallel.IndexFunc

// Dispatcher executes indexed tasks on a fixed worker pool.
type Dispatcher = parallel.Dispatcher

// State is the lifecycle state of a Dispatcher.
type State = parallel.State

// Lifecycle states.
const (
	StateActive   = parallel.StateActive
	StateFinished = parallel.StateFinished
)

// Option configures a Dispatcher.
type Option = parallel.Option

// Config holds pool sizing, failure handling and logging settings.
type Config = config.Config

// MetricsCollector records per-round metrics.
type MetricsCollector = monitoring.MetricsCollector

// Error is the structured error returned by dispatcher operations.
type Error = errors.DispatchError

// Sentinel errors for errors.Is.
var (
	ErrFinished    = errors.ErrFinished
	ErrInterrupted = errors.ErrInterrupted
	ErrTaskFailed  = errors.ErrTaskFailed
)

// New creates a dispatcher running task over [0, count) on every Run.
func New(count int, task Task, opts ...Option) (*Dispatcher, error) {
	return parallel.New(count, task, opts...)
}

// NewPerWorker creates a dispatcher where each worker owns factory(worker).
func NewPerWorker(count int, factory func(worker int) Task, opts ...Option) (*Dispatcher, error) {
	return parallel.NewPerWorker(count, factory, opts...)
}

// ParallelFor runs fn over [0, count) once on a throwaway pool.
func ParallelFor(ctx context.Context, count int, fn func(index int) error, opts ...Option) error {
	return parallel.ParallelFor(ctx, count, fn, opts...)
}

// WithWorkers fixes the pool size.
func WithWorkers(n int) Option { return parallel.WithWorkers(n) }

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option { return parallel.WithLogger(logger) }

// WithMetrics records rounds into collector.
func WithMetrics(collector *MetricsCollector) Option { return parallel.WithMetrics(collector) }

// WithName labels the dispatcher in logs and metrics.
func WithName(name string) Option { return parallel.WithName(name) }

// WithConfig applies cfg instead of the global configuration.
func WithConfig(cfg Config) Option { return parallel.WithConfig(cfg) }

// NewConfig returns the default configuration.
func NewConfig() Config { return config.NewConfig() }

// LoadConfig reads a .json, .yaml or .toml configuration file.
func LoadConfig(path string) (Config, error) { return config.LoadFromFile(path) }

// SetConfig replaces the global configuration used by dispatchers created
// without WithConfig.
func SetConfig(cfg Config) { config.SetGlobalConfig(cfg) }

// NewMetricsCollector creates a metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return monitoring.NewMetricsCollector(enabled)
}

// IsInterrupted reports whether err comes from a round cut short by
// cancellation; the dispatcher has been finished.
func IsInterrupted(err error) bool { return errors.IsInterrupted(err) }

// IsTaskFailed reports whether err carries a failed task index.
func IsTaskFailed(err error) bool { return errors.IsTaskFailed(err) }

// TaskIndex returns the failing index of a task error.
func TaskIndex(err error) (int, bool) { return errors.TaskIndex(err) }
