package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for cached query results.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentQueries is the maximum number of queries executing at
	// once. If 0, unlimited.
	MaxConcurrentQueries int64

	// AdmissionBytesPerSec limits how many result bytes may enter caches per
	// second. If 0, unlimited.
	AdmissionBytesPerSec int64
}

// Controller manages resources shared by all queries of a database.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	querySem *semaphore.Weighted // nil if unlimited
	active   atomic.Int64

	// Cache admission
	admission *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.MaxConcurrentQueries > 0 {
		c.querySem = semaphore.NewWeighted(cfg.MaxConcurrentQueries)
	}

	if cfg.AdmissionBytesPerSec > 0 {
		c.admission = rate.NewLimiter(rate.Limit(cfg.AdmissionBytesPerSec), int(cfg.AdmissionBytesPerSec))
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking - callers control retry/backoff policy.
func (c *Controller) AcquireMemory(bytes int64) error {
	if !c.TryAcquireMemory(bytes) {
		return ErrMemoryLimitExceeded
	}
	return nil
}

// TryAcquireMemory reserves memory and reports whether it succeeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireQuery reserves a query slot. Blocks until a slot frees up or ctx
// is done.
func (c *Controller) AcquireQuery(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.querySem != nil {
		if err := c.querySem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	c.active.Add(1)
	return nil
}

// TryAcquireQuery reserves a query slot without blocking.
func (c *Controller) TryAcquireQuery() bool {
	if c == nil {
		return true
	}
	if c.querySem != nil && !c.querySem.TryAcquire(1) {
		return false
	}
	c.active.Add(1)
	return true
}

// ReleaseQuery releases a query slot.
func (c *Controller) ReleaseQuery() {
	if c == nil {
		return
	}
	if c.querySem != nil {
		c.querySem.Release(1)
	}
	c.active.Add(-1)
}

// ActiveQueries returns the number of held query slots.
func (c *Controller) ActiveQueries() int64 {
	if c == nil {
		return 0
	}
	return c.active.Load()
}

// TryAdmit reports whether bytes may enter a cache now. Admissions above
// the configured rate are refused rather than delayed.
func (c *Controller) TryAdmit(bytes int) bool {
	if c == nil || c.admission == nil {
		return true
	}
	return c.admission.AllowN(time.Now(), bytes)
}
