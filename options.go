package glr

import (
	"log/slog"

	"github.com/hupe1980/glr/classfile"
	"github.com/hupe1980/glr/internal/arena"
	"github.com/hupe1980/glr/internal/resource"
)

// Layout assigns the loader's memory ranges.
type Layout = arena.Layout

// ArenaConfig describes one memory range of a Layout.
type ArenaConfig = arena.Config

// ArenaStats is a snapshot of one memory range's usage.
type ArenaStats = arena.Stats

// DefaultLayout returns the fixed-address layout used by New.
func DefaultLayout() Layout { return arena.DefaultLayout() }

// FloatingLayout returns the default sizes with OS-chosen base addresses.
func FloatingLayout() Layout { return arena.FloatingLayout() }

// ResourceController enforces the memory budget, fetch concurrency and fetch
// IO limits shared by a Loader and its class path.
type ResourceController = resource.Controller

// ResourceConfig holds the limits of a ResourceController.
type ResourceConfig = resource.Config

// NewResourceController creates a controller for cfg.
func NewResourceController(cfg ResourceConfig) *ResourceController {
	return resource.NewController(cfg)
}

type options struct {
	logger          *Logger
	metrics         MetricsCollector
	layout          Layout
	initialCapacity int
	limits          classfile.Limits
	resources       *resource.Controller
	pager           arena.Pager
}

// Option configures a Loader.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := glr.NewJSONLogger(slog.LevelDebug)
//	loader, _ := glr.New(glr.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring.
//
//	metrics := &glr.BasicMetricsCollector{}
//	loader, _ := glr.New(glr.WithMetricsCollector(metrics))
//	// ... load classes ...
//	stats := metrics.GetStats()
//	fmt.Printf("Loads: %d, Avg latency: %dns\n", stats.LoadCount, stats.LoadAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithLayout replaces DefaultLayout.
func WithLayout(l Layout) Option {
	return func(o *options) {
		o.layout = l
	}
}

// WithInitialCapacity sets the initial slot count of the class-name table.
// It is rounded up to a power of two.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.initialCapacity = n
	}
}

// WithLimits bounds the class files the loader accepts.
func WithLimits(l classfile.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithResourceController charges every committed arena page against rc.
func WithResourceController(rc *ResourceController) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithHeapArenas backs the memory ranges with Go heap memory instead of OS
// reservations. Base addresses are then chosen by the runtime and the code
// range is not executable. Intended for platforms without page reservation
// support and for tests.
func WithHeapArenas() Option {
	return func(o *options) {
		o.pager = arena.HeapPager
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:          NoopLogger(),
		metrics:         NoopMetricsCollector{},
		layout:          DefaultLayout(),
		initialCapacity: 8,
		limits:          classfile.DefaultLimits(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
