package evigo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus
// (see package promcollector).
type MetricsCollector interface {
	// RecordQuery is called after each query.
	// cardinality is the number of matching entities, err is nil if successful.
	RecordQuery(entityType string, cardinality int, duration time.Duration, err error)

	// RecordPlan is called after index selection. alternatives is the number
	// of compiled alternatives, reduced reports whether a reduced index
	// alternative won over the global baseline.
	RecordPlan(entityType string, alternatives int, reduced bool)

	// RecordUpsert is called after each upsert.
	RecordUpsert(entityType string, duration time.Duration, err error)

	// RecordRemove is called after each remove.
	RecordRemove(entityType string, duration time.Duration, err error)

	// RecordCache is called after each query with the cumulative cache
	// statistics.
	RecordCache(stats CacheStats)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordQuery(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordPlan(string, int, bool)                  {}
func (NoopMetricsCollector) RecordUpsert(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordRemove(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordCache(CacheStats)                        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	QueryCount         atomic.Int64
	QueryErrors        atomic.Int64
	QueryTotalNanos    atomic.Int64
	QueryResultKeys    atomic.Int64
	PlanCount          atomic.Int64
	ReducedPlanCount   atomic.Int64
	UpsertCount        atomic.Int64
	UpsertErrors       atomic.Int64
	UpsertTotalNanos   atomic.Int64
	RemoveCount        atomic.Int64
	RemoveErrors       atomic.Int64
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
	CacheAdmissions    atomic.Int64
	CacheEvictions     atomic.Int64
	CacheResidentBytes atomic.Int64
	CacheResidentItems atomic.Int64
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ string, cardinality int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
		return
	}
	b.QueryResultKeys.Add(int64(cardinality))
}

// RecordPlan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPlan(_ string, _ int, reduced bool) {
	b.PlanCount.Add(1)
	if reduced {
		b.ReducedPlanCount.Add(1)
	}
}

// RecordUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpsert(_ string, duration time.Duration, err error) {
	b.UpsertCount.Add(1)
	b.UpsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UpsertErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(_ string, _ time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordCache implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCache(stats CacheStats) {
	b.CacheHits.Store(stats.Hits)
	b.CacheMisses.Store(stats.Misses)
	b.CacheAdmissions.Store(stats.Admissions)
	b.CacheEvictions.Store(stats.Evictions)
	b.CacheResidentBytes.Store(stats.Bytes)
	b.CacheResidentItems.Store(int64(stats.Entries))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		QueryCount:       b.QueryCount.Load(),
		QueryErrors:      b.QueryErrors.Load(),
		QueryAvgNanos:    avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		QueryResultKeys:  b.QueryResultKeys.Load(),
		PlanCount:        b.PlanCount.Load(),
		ReducedPlanCount: b.ReducedPlanCount.Load(),
		UpsertCount:      b.UpsertCount.Load(),
		UpsertErrors:     b.UpsertErrors.Load(),
		UpsertAvgNanos:   avg(b.UpsertTotalNanos.Load(), b.UpsertCount.Load()),
		RemoveCount:      b.RemoveCount.Load(),
		RemoveErrors:     b.RemoveErrors.Load(),
		CacheHits:        b.CacheHits.Load(),
		CacheMisses:      b.CacheMisses.Load(),
		CacheAdmissions:  b.CacheAdmissions.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	QueryCount       int64
	QueryErrors      int64
	QueryAvgNanos    int64
	QueryResultKeys  int64
	PlanCount        int64
	ReducedPlanCount int64
	UpsertCount      int64
	UpsertErrors     int64
	UpsertAvgNanos   int64
	RemoveCount      int64
	RemoveErrors     int64
	CacheHits        int64
	CacheMisses      int64
	CacheAdmissions  int64
}
