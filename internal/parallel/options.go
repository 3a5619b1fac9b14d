package parallel

import (
	"log/slog"
	"runtime"

	"github.com/paveg/dispatch/internal/config"
	"github.com/paveg/dispatch/internal/logging"
	"github.com/paveg/dispatch/internal/monitoring"
)

// Option configures a Dispatcher at construction.
type Option func(*options)

type options struct {
	cfg     config.Config
	workers int
	logger  *slog.Logger
	metrics *monitoring.MetricsCollector
	name    string
}

func defaultOptions() options {
	return options{
		cfg:    config.GetGlobalConfig(),
		logger: logging.Discard(),
		name:   "dispatcher",
	}
}

// WithWorkers fixes the pool size. n <= 0 keeps hardware parallelism.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger used for lifecycle and failure records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records every round into collector instead of the global one.
func WithMetrics(collector *monitoring.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = collector
	}
}

// WithName labels the dispatcher in logs and round metrics.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithConfig replaces the global configuration for this dispatcher.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg.WithDefaults()
	}
}

// poolSize resolves the worker count: an explicit WithWorkers wins,
// otherwise the configuration decides against runtime.NumCPU.
func (o options) poolSize() int {
	if o.workers > 0 {
		return o.workers
	}
	return o.cfg.ResolveWorkers(runtime.NumCPU())
}
