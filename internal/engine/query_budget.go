package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// QueryBudget enforces resource limits during query execution.
// It caps:
//   - Wall-clock time
//   - Estimated cost of the chosen plan
//   - Result cardinality
//
// Design: Pass budget through context, check at plan and compute boundaries.
type QueryBudget struct {
	// Time budget
	deadline time.Time
	started  time.Time

	// Plan cost budget
	maxEstimatedCost int64
	estimatedCost    atomic.Int64

	// Result size budget
	maxResultSize int

	// Early termination flag
	exhausted atomic.Bool

	// Stats for observability
	exhaustedReason atomic.Value // string
}

// BudgetConfig configures query resource limits.
type BudgetConfig struct {
	// MaxDuration limits wall-clock time of plan compilation and compute.
	// 0 = unlimited. Typical: 100ms-1s.
	MaxDuration time.Duration

	// MaxEstimatedCost rejects queries whose cheapest plan is estimated
	// above this cost.
	// 0 = unlimited.
	MaxEstimatedCost int64

	// MaxResultSize rejects results with more primary keys.
	// 0 = unlimited.
	MaxResultSize int
}

// DefaultBudgetConfig returns a permissive budget for general use.
func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		MaxDuration:      0, // unlimited
		MaxEstimatedCost: 0, // unlimited
		MaxResultSize:    0, // unlimited
	}
}

// StrictBudgetConfig returns a strict budget for predictable latency.
func StrictBudgetConfig(targetLatency time.Duration) BudgetConfig {
	// Heuristic: one cost unit is roughly one nanosecond of bitmap work.
	cost := targetLatency.Nanoseconds()
	if cost < 1_000_000 {
		cost = 1_000_000
	}

	return BudgetConfig{
		MaxDuration:      targetLatency,
		MaxEstimatedCost: cost,
	}
}

// NewQueryBudget creates a budget from configuration.
func NewQueryBudget(cfg BudgetConfig) *QueryBudget {
	qb := &QueryBudget{
		maxEstimatedCost: cfg.MaxEstimatedCost,
		maxResultSize:    cfg.MaxResultSize,
		started:          time.Now(),
	}

	if cfg.MaxDuration > 0 {
		qb.deadline = qb.started.Add(cfg.MaxDuration)
	}

	return qb
}

// budgetKey is the context key for QueryBudget.
type budgetKey struct{}

// WithBudget attaches a budget to a context.
func WithBudget(ctx context.Context, budget *QueryBudget) context.Context {
	return context.WithValue(ctx, budgetKey{}, budget)
}

// BudgetFromContext retrieves the budget from context, or nil if none.
func BudgetFromContext(ctx context.Context) *QueryBudget {
	if b, ok := ctx.Value(budgetKey{}).(*QueryBudget); ok {
		return b
	}
	return nil
}

// Context derives a context that is canceled at the budget deadline.
func (qb *QueryBudget) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if qb == nil || qb.deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, qb.deadline)
}

// CheckEstimatedCost records the estimated cost of the chosen plan.
// Returns false if it exceeds the budget.
func (qb *QueryBudget) CheckEstimatedCost(cost int64) bool {
	if qb == nil {
		return true
	}
	qb.estimatedCost.Store(cost)

	if qb.maxEstimatedCost == 0 {
		return true
	}
	if qb.exhausted.Load() {
		return false
	}
	if cost > qb.maxEstimatedCost {
		qb.markExhausted("estimated_cost")
		return false
	}
	return true
}

// CheckDeadline checks if the time budget is exhausted.
func (qb *QueryBudget) CheckDeadline() bool {
	if qb == nil || qb.deadline.IsZero() {
		return true
	}

	if qb.exhausted.Load() {
		return false
	}

	if !time.Now().Before(qb.deadline) {
		qb.markExhausted("deadline")
		return false
	}

	return true
}

// CheckResultSize checks the result size budget.
func (qb *QueryBudget) CheckResultSize(n int) bool {
	if qb == nil || qb.maxResultSize == 0 {
		return true
	}

	if qb.exhausted.Load() {
		return false
	}

	if n > qb.maxResultSize {
		qb.markExhausted("result_size")
		return false
	}

	return true
}

// IsExhausted returns true if any budget limit was exceeded.
func (qb *QueryBudget) IsExhausted() bool {
	if qb == nil {
		return false
	}
	return qb.exhausted.Load()
}

// ExhaustedReason returns why the budget was exhausted.
func (qb *QueryBudget) ExhaustedReason() string {
	if qb == nil {
		return ""
	}
	if r := qb.exhaustedReason.Load(); r != nil {
		return r.(string)
	}
	return ""
}

func (qb *QueryBudget) markExhausted(reason string) {
	if qb.exhausted.CompareAndSwap(false, true) {
		qb.exhaustedReason.Store(reason)
	}
}

// Stats returns budget usage statistics.
func (qb *QueryBudget) Stats() BudgetStats {
	if qb == nil {
		return BudgetStats{}
	}

	var timeLimit time.Duration
	if !qb.deadline.IsZero() {
		timeLimit = qb.deadline.Sub(qb.started)
	}

	return BudgetStats{
		EstimatedCost:      qb.estimatedCost.Load(),
		EstimatedCostLimit: qb.maxEstimatedCost,
		ResultSizeLimit:    qb.maxResultSize,
		Elapsed:            time.Since(qb.started),
		TimeLimit:          timeLimit,
		Exhausted:          qb.exhausted.Load(),
		ExhaustedReason:    qb.ExhaustedReason(),
	}
}

// BudgetStats contains budget usage statistics.
type BudgetStats struct {
	EstimatedCost      int64
	EstimatedCostLimit int64
	ResultSizeLimit    int
	Elapsed            time.Duration
	TimeLimit          time.Duration
	Exhausted          bool
	ExhaustedReason    string
}

// UtilizationPercent returns the highest budget utilization percentage.
func (s BudgetStats) UtilizationPercent() float64 {
	var maxUtil float64

	if s.EstimatedCostLimit > 0 {
		util := float64(s.EstimatedCost) / float64(s.EstimatedCostLimit) * 100
		if util > maxUtil {
			maxUtil = util
		}
	}

	if s.TimeLimit > 0 {
		util := float64(s.Elapsed) / float64(s.TimeLimit) * 100
		if util > maxUtil {
			maxUtil = util
		}
	}

	return maxUtil
}
