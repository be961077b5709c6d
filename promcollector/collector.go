// Package promcollector exports evigo operational metrics to Prometheus.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	db := evigo.New(evigo.WithMetricsCollector(promcollector.New(reg)))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package promcollector

import (
	"time"

	"github.com/hupe1980/evigo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "evigo"

// Collector implements evigo.MetricsCollector on top of Prometheus metrics.
type Collector struct {
	// QueriesTotal counts queries by entity type and status (success, error).
	QueriesTotal *prometheus.CounterVec
	// QueryDurationSeconds measures query latency by entity type.
	QueryDurationSeconds *prometheus.HistogramVec
	// QueryResultSize measures the number of matching entities.
	QueryResultSize *prometheus.HistogramVec
	// PlansTotal counts chosen plans by entity type and index kind
	// (global, reduced).
	PlansTotal *prometheus.CounterVec
	// PlanAlternatives measures the number of compiled index alternatives.
	PlanAlternatives prometheus.Histogram
	// WritesTotal counts upserts and removes by entity type, operation and
	// status.
	WritesTotal *prometheus.CounterVec
	// WriteDurationSeconds measures upsert and remove latency.
	WriteDurationSeconds *prometheus.HistogramVec
	// CacheHits, CacheMisses, CacheAdmissions and CacheEvictions mirror the
	// cumulative formula cache counters.
	CacheHits       prometheus.Gauge
	CacheMisses     prometheus.Gauge
	CacheAdmissions prometheus.Gauge
	CacheEvictions  prometheus.Gauge
	// CacheBytes is the payload size held by the formula cache.
	CacheBytes prometheus.Gauge
	// CacheEntries is the number of cached formula results.
	CacheEntries prometheus.Gauge
}

var _ evigo.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of queries by entity type and status",
		}, []string{"entity_type", "status"}),
		QueryDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query latency in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"entity_type"}),
		QueryResultSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_result_size",
			Help:      "Number of entities matched by a query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"entity_type"}),
		PlansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Total number of chosen plans by entity type and index kind",
		}, []string{"entity_type", "index"}),
		PlanAlternatives: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_alternatives",
			Help:      "Number of index alternatives compiled per query",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		}),
		WritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Total number of writes by entity type, operation and status",
		}, []string{"entity_type", "operation", "status"}),
		WriteDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_duration_seconds",
			Help:      "Write latency in seconds",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}, []string{"operation"}),
		CacheHits: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits",
			Help:      "Formula cache hits since start",
		}),
		CacheMisses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses",
			Help:      "Formula cache misses since start",
		}),
		CacheAdmissions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "admissions",
			Help:      "Formula results admitted to the cache since start",
		}),
		CacheEvictions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions",
			Help:      "Formula results evicted from the cache since start",
		}),
		CacheBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "bytes",
			Help:      "Payload bytes held by the formula cache",
		}),
		CacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of cached formula results",
		}),
	}
}

// RecordQuery implements evigo.MetricsCollector.
func (c *Collector) RecordQuery(entityType string, cardinality int, duration time.Duration, err error) {
	c.QueriesTotal.WithLabelValues(entityType, status(err)).Inc()
	c.QueryDurationSeconds.WithLabelValues(entityType).Observe(duration.Seconds())
	if err == nil {
		c.QueryResultSize.WithLabelValues(entityType).Observe(float64(cardinality))
	}
}

// RecordPlan implements evigo.MetricsCollector.
func (c *Collector) RecordPlan(entityType string, alternatives int, reduced bool) {
	kind := "global"
	if reduced {
		kind = "reduced"
	}
	c.PlansTotal.WithLabelValues(entityType, kind).Inc()
	c.PlanAlternatives.Observe(float64(alternatives))
}

// RecordUpsert implements evigo.MetricsCollector.
func (c *Collector) RecordUpsert(entityType string, duration time.Duration, err error) {
	c.WritesTotal.WithLabelValues(entityType, "upsert", status(err)).Inc()
	c.WriteDurationSeconds.WithLabelValues("upsert").Observe(duration.Seconds())
}

// RecordRemove implements evigo.MetricsCollector.
func (c *Collector) RecordRemove(entityType string, duration time.Duration, err error) {
	c.WritesTotal.WithLabelValues(entityType, "remove", status(err)).Inc()
	c.WriteDurationSeconds.WithLabelValues("remove").Observe(duration.Seconds())
}

// RecordCache implements evigo.MetricsCollector.
func (c *Collector) RecordCache(stats evigo.CacheStats) {
	c.CacheHits.Set(float64(stats.Hits))
	c.CacheMisses.Set(float64(stats.Misses))
	c.CacheAdmissions.Set(float64(stats.Admissions))
	c.CacheEvictions.Set(float64(stats.Evictions))
	c.CacheBytes.Set(float64(stats.Bytes))
	c.CacheEntries.Set(float64(stats.Entries))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
