// Package resource implements the Controller for limits shared by all
// queries of a database.
//
// The Controller manages three resource types:
//
//   - Memory: Track and limit bytes held by result caches (non-blocking, fail-fast)
//   - Concurrency: Limit the number of queries executing at once
//   - Admission: Rate-limit bytes entering caches to protect the query path
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Query Slots    │  Admission Limiter      │
//	│  (fail-fast)    │  (semaphore)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireQuery   │  TryAdmit               │
//	│  TryAcquire...  │  TryAcquire...  │                         │
//	│  ReleaseMemory  │  ReleaseQuery   │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64MB of cached results
//	})
//
//	if err := rc.AcquireMemory(int64(len(payload))); err != nil {
//	    // ErrMemoryLimitExceeded - do not cache
//	}
//	defer rc.ReleaseMemory(int64(len(payload)))
//
// # Query Slots
//
//	if err := rc.AcquireQuery(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseQuery()
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
