package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBudget_EstimatedCost(t *testing.T) {
	qb := NewQueryBudget(BudgetConfig{MaxEstimatedCost: 100})

	assert.True(t, qb.CheckEstimatedCost(100))
	assert.False(t, qb.IsExhausted())

	assert.False(t, qb.CheckEstimatedCost(101))
	assert.True(t, qb.IsExhausted())
	assert.Equal(t, "estimated_cost", qb.ExhaustedReason())

	stats := qb.Stats()
	assert.Equal(t, int64(101), stats.EstimatedCost)
	assert.InDelta(t, 101.0, stats.UtilizationPercent(), 0.001)
}

func TestQueryBudget_ResultSize(t *testing.T) {
	qb := NewQueryBudget(BudgetConfig{MaxResultSize: 10})

	assert.True(t, qb.CheckResultSize(10))
	assert.False(t, qb.CheckResultSize(11))
	assert.Equal(t, "result_size", qb.ExhaustedReason())

	// The first reason sticks.
	assert.False(t, qb.CheckEstimatedCost(1))
	assert.Equal(t, "result_size", qb.ExhaustedReason())
}

func TestQueryBudget_Deadline(t *testing.T) {
	qb := NewQueryBudget(BudgetConfig{MaxDuration: 5 * time.Millisecond})
	assert.True(t, qb.CheckDeadline())

	ctx, cancel := qb.Context(context.Background())
	defer cancel()
	<-ctx.Done()
	require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)

	assert.False(t, qb.CheckDeadline())
	assert.Equal(t, "deadline", qb.ExhaustedReason())
	assert.Equal(t, 5*time.Millisecond, qb.Stats().TimeLimit)
}

func TestQueryBudget_Unlimited(t *testing.T) {
	qb := NewQueryBudget(DefaultBudgetConfig())

	assert.True(t, qb.CheckEstimatedCost(1<<40))
	assert.True(t, qb.CheckResultSize(1<<30))
	assert.True(t, qb.CheckDeadline())
	assert.Zero(t, qb.Stats().TimeLimit)

	ctx, cancel := qb.Context(context.Background())
	defer cancel()
	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
}

func TestQueryBudget_NilChecks(t *testing.T) {
	var qb *QueryBudget
	assert.True(t, qb.CheckEstimatedCost(1))
	assert.True(t, qb.CheckResultSize(1))
	assert.True(t, qb.CheckDeadline())
	assert.False(t, qb.IsExhausted())
	assert.Empty(t, qb.ExhaustedReason())
	assert.Equal(t, BudgetStats{}, qb.Stats())

	ctx, cancel := qb.Context(context.Background())
	defer cancel()
	assert.NoError(t, ctx.Err())
}

func TestQueryBudget_Context(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, BudgetFromContext(ctx))

	qb := NewQueryBudget(DefaultBudgetConfig())
	assert.Same(t, qb, BudgetFromContext(WithBudget(ctx, qb)))
}

func TestStrictBudgetConfig(t *testing.T) {
	cfg := StrictBudgetConfig(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, cfg.MaxDuration)
	assert.Equal(t, int64(50_000_000), cfg.MaxEstimatedCost)

	assert.Equal(t, int64(1_000_000), StrictBudgetConfig(time.Microsecond).MaxEstimatedCost)
}
