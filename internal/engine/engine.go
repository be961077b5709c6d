package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/internal/cache"
	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/internal/planner"
	"github.com/hupe1980/evigo/internal/resource"
	"github.com/hupe1980/evigo/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hupe1980/evigo/internal/engine"

// Options configures an Engine.
type Options struct {
	// Cache memoizes formula results across queries. Nil disables caching.
	Cache *cache.FormulaCache
	// Resource bounds concurrent queries. Nil means unlimited.
	Resource *resource.Controller
	// Tracer records spans. Defaults to the global otel tracer.
	Tracer trace.Tracer
	// Budget is applied to every executed query.
	Budget BudgetConfig
}

// Engine plans and executes queries against a catalog.
type Engine struct {
	catalog *index.Catalog
	cache   *cache.FormulaCache
	rc      *resource.Controller
	tracer  trace.Tracer
	budget  BudgetConfig
}

// New creates an engine over catalog.
func New(catalog *index.Catalog, opts Options) *Engine {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Engine{
		catalog: catalog,
		cache:   opts.Cache,
		rc:      opts.Resource,
		tracer:  tracer,
		budget:  opts.Budget,
	}
}

// Result is the outcome of an executed query.
type Result struct {
	// PrimaryKeys of the matching entities.
	PrimaryKeys bitmap.Bitmap
	Plan        *Plan
	// Cost is the actual cost of the computed formula.
	Cost int64
	// Admitted is the number of subtree results admitted to the cache.
	Admitted int
	Duration time.Duration
	Budget   BudgetStats
}

// Plan selects the index alternatives for q, compiles each of them and
// picks the cheapest one.
func (e *Engine) Plan(ctx context.Context, q *query.Query) (*Plan, error) {
	ctx, span := e.tracer.Start(ctx, "evigo.plan", trace.WithAttributes(
		attribute.String("evigo.entity_type", q.EntityType),
		attribute.String("evigo.scopes", q.ActiveScopes().String()),
	))
	defer span.End()

	p, err := e.plan(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("evigo.alternatives", len(p.Alternatives)),
		attribute.Bool("evigo.empty", p.IsEmpty()),
	)
	span.SetStatus(codes.Ok, "")
	return p, nil
}

func (e *Engine) plan(ctx context.Context, q *query.Query) (*Plan, error) {
	col, err := e.catalog.Collection(q.EntityType)
	if err != nil {
		return nil, err
	}
	translator := planner.NewIndexHierarchyTranslator(e.catalog, col.Schema())

	selection, err := e.selectIndexes(ctx, q, col, translator)
	if err != nil {
		return nil, err
	}
	p := &Plan{Query: q, Selection: selection, chosen: -1}
	if selection.IsEmpty() {
		return p, nil
	}

	targets := append([]*planner.TargetIndexes{selection.Baseline()}, selection.Eligible()...)
	alternatives, err := e.compile(ctx, q, NewCompiler(e.catalog, col, translator), targets)
	if err != nil {
		return nil, err
	}
	p.Alternatives = alternatives
	p.chosen = choose(alternatives)
	if err := e.analyse(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) selectIndexes(ctx context.Context, q *query.Query, col *index.Collection, translator planner.HierarchyTranslator) (*planner.IndexSelectionResult, error) {
	ctx, span := e.tracer.Start(ctx, "evigo.select")
	defer span.End()

	selection, err := planner.NewSelector(col, q.ActiveScopes(), translator).Select(ctx, q.Filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("evigo.eligible", len(selection.Eligible())))
	return selection, nil
}

// compile builds one formula per target. Each alternative is initialized
// with its own calculation context so that costs of equal subtrees are
// counted once per alternative.
func (e *Engine) compile(ctx context.Context, q *query.Query, compiler *Compiler, targets []*planner.TargetIndexes) ([]Alternative, error) {
	ctx, span := e.tracer.Start(ctx, "evigo.compile", trace.WithAttributes(
		attribute.Int("evigo.targets", len(targets)),
	))
	defer span.End()

	out := make([]Alternative, 0, len(targets))
	for _, t := range targets {
		f, err := compiler.Compile(ctx, q.Filter, t)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		f.Initialize(formula.NewCalculationContext())

		if e.cache != nil {
			cached, err := e.cache.Lookup(f)
			if err != nil {
				return nil, err
			}
			f = reinitialize(f, cached)
		}
		out = append(out, Alternative{Target: t, Formula: f, EstimatedCost: f.EstimatedCost()})
	}
	return out, nil
}

// analyse records cache usage for the chosen alternative only.
func (e *Engine) analyse(p *Plan) error {
	if e.cache == nil || p.chosen < 0 {
		return nil
	}
	alt := &p.Alternatives[p.chosen]
	analysed, err := e.cache.Analyse(alt.Formula)
	if err != nil {
		return err
	}
	if f := reinitialize(alt.Formula, analysed); f != alt.Formula {
		alt.Formula, alt.EstimatedCost = f, f.EstimatedCost()
	}
	return nil
}

// reinitialize gives a rewritten formula a fresh calculation context.
func reinitialize(original, rewritten formula.Formula) formula.Formula {
	if rewritten == original {
		return original
	}
	rewritten.Initialize(formula.NewCalculationContext())
	return rewritten
}

// Execute plans q and computes the chosen formula under the configured
// QueryBudget. Computed subtrees are offered to the cache afterwards.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (*Result, error) {
	start := time.Now()
	if err := e.rc.AcquireQuery(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackpressure, err)
	}
	defer e.rc.ReleaseQuery()

	qb := BudgetFromContext(ctx)
	if qb == nil {
		qb = NewQueryBudget(e.budget)
		ctx = WithBudget(ctx, qb)
	}
	ctx, cancel := qb.Context(ctx)
	defer cancel()

	p, err := e.Plan(ctx, q)
	if err != nil {
		return nil, e.budgetAware(qb, err)
	}
	if !qb.CheckEstimatedCost(p.EstimatedCost()) {
		return nil, budgetError(qb, nil)
	}

	bm, err := e.compute(ctx, p.Formula())
	if err != nil {
		return nil, e.budgetAware(qb, err)
	}
	if !qb.CheckResultSize(bm.Cardinality()) {
		return nil, budgetError(qb, nil)
	}

	res := &Result{
		PrimaryKeys: bm,
		Plan:        p,
		Cost:        p.Formula().Cost(),
	}
	if e.cache != nil && !p.IsEmpty() {
		res.Admitted = e.cache.Feed(p.Formula())
	}
	res.Duration = time.Since(start)
	res.Budget = qb.Stats()
	return res, nil
}

func (e *Engine) compute(ctx context.Context, f formula.Formula) (bitmap.Bitmap, error) {
	ctx, span := e.tracer.Start(ctx, "evigo.compute", trace.WithAttributes(
		attribute.String("evigo.formula", f.Kind().String()),
		attribute.Int64("evigo.estimated_cost", f.EstimatedCost()),
	))
	defer span.End()

	bm, err := f.Compute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("evigo.cardinality", bm.Cardinality()))
	span.SetStatus(codes.Ok, "")
	return bm, nil
}

// budgetAware reports deadline errors caused by the budget as budget errors.
func (e *Engine) budgetAware(qb *QueryBudget, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !qb.CheckDeadline() {
		return budgetError(qb, err)
	}
	return err
}

// Cache returns the formula cache, or nil when caching is disabled.
func (e *Engine) Cache() *cache.FormulaCache { return e.cache }
