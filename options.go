package evigo

import (
	"log/slog"
	"time"

	"github.com/hupe1980/evigo/internal/cache"
	"github.com/hupe1980/evigo/internal/engine"
	"go.opentelemetry.io/otel/trace"
)

// CacheConfig configures the formula result cache.
type CacheConfig = cache.Config

// CacheStats contains formula result cache statistics.
type CacheStats = cache.Stats

// Compression defines the algorithm used for cached bitmaps.
type Compression = cache.Compression

const (
	CompressionNone = cache.CompressionNone
	CompressionLZ4  = cache.CompressionLZ4
	CompressionZSTD = cache.CompressionZSTD
)

// QueryBudgetConfig bounds the work of a single query.
type QueryBudgetConfig = engine.BudgetConfig

// DefaultCacheConfig returns an enabled cache configuration with default
// thresholds.
func DefaultCacheConfig() CacheConfig {
	cfg := cache.DefaultConfig()
	cfg.Enabled = true
	return cfg
}

// ResourceLimits bounds resources shared by all queries of a DB.
// Zero values mean unlimited.
type ResourceLimits struct {
	// MemoryBytes is the hard limit for cached query results.
	MemoryBytes int64
	// MaxConcurrentQueries is the maximum number of queries executing at once.
	MaxConcurrentQueries int64
	// CacheAdmissionBytesPerSec limits how many result bytes may enter the
	// cache per second.
	CacheAdmissionBytesPerSec int64
}

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	tracer           trace.Tracer
	cache            CacheConfig
	budget           QueryBudgetConfig
	limits           ResourceLimits
}

// Option configures DB constructor behavior.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &evigo.BasicMetricsCollector{}
//	db := evigo.New(evigo.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := evigo.NewJSONLogger(slog.LevelInfo)
//	db := evigo.New(evigo.WithLogger(logger))
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

// WithTracer records index selection, compilation and computation spans
// with tracer. By default the global OpenTelemetry tracer provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithCache enables the formula result cache.
//
// Subtrees of query formulas that are requested repeatedly and are expensive
// to compute are memoized. A cached result is only served while none of the
// indexes it was computed from has changed.
//
// Example:
//
//	cfg := evigo.DefaultCacheConfig()
//	cfg.MaxBytes = 256 << 20
//	cfg.Compression = evigo.CompressionZSTD
//	db := evigo.New(evigo.WithCache(cfg))
func WithCache(cfg CacheConfig) Option {
	return func(o *options) {
		o.cache = cfg
	}
}

// WithQueryTimeout bounds the duration of every query.
// Queries running longer fail with ErrBudgetExceeded.
func WithQueryTimeout(d time.Duration) Option {
	return func(o *options) {
		o.budget.MaxDuration = d
	}
}

// WithQueryBudget bounds every query by duration, estimated cost and result
// size. It replaces a previously configured WithQueryTimeout.
func WithQueryBudget(cfg QueryBudgetConfig) Option {
	return func(o *options) {
		o.budget = cfg
	}
}

// WithResourceLimits bounds memory, query concurrency and cache admission.
func WithResourceLimits(limits ResourceLimits) Option {
	return func(o *options) {
		o.limits = limits
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		budget:           engine.DefaultBudgetConfig(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
