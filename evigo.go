package evigo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/evigo/internal/cache"
	"github.com/hupe1980/evigo/internal/engine"
	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/internal/resource"
	"github.com/hupe1980/evigo/model"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
)

// DB is an embedded, in-memory entity database answering filter queries.
//
// A DB is safe for concurrent use. Queries never block on writers: every
// query works on immutable index snapshots.
type DB struct {
	catalog *index.Catalog
	engine  *engine.Engine
	cache   *cache.FormulaCache
	rc      *resource.Controller

	logger  *Logger
	metrics MetricsCollector

	closed atomic.Bool
}

// Result is the outcome of a query.
type Result struct {
	// QueryID identifies the query in logs.
	QueryID string
	// PrimaryKeys of the matching entities in ascending order.
	PrimaryKeys []uint32
	// Plan describes the chosen index alternative.
	Plan string
	// EstimatedCost is the estimated cost of the chosen alternative.
	EstimatedCost int64
	// Cost is the actual cost of the computed formula.
	Cost     int64
	Duration time.Duration
}

// New creates an empty DB.
func New(optFns ...Option) *DB {
	o := applyOptions(optFns)

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     o.limits.MemoryBytes,
		MaxConcurrentQueries: o.limits.MaxConcurrentQueries,
		AdmissionBytesPerSec: o.limits.CacheAdmissionBytesPerSec,
	})

	var fc *cache.FormulaCache
	if o.cache.Enabled {
		fc = cache.New(o.cache, rc)
	}

	catalog := index.NewCatalog()
	return &DB{
		catalog: catalog,
		engine: engine.New(catalog, engine.Options{
			Cache:    fc,
			Resource: rc,
			Tracer:   o.tracer,
			Budget:   o.budget,
		}),
		cache:   fc,
		rc:      rc,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
}

// DefineEntity registers the collection of entity type s.Name.
func (db *DB) DefineEntity(ctx context.Context, s *schema.EntitySchema) error {
	if db.closed.Load() {
		return ErrClosed
	}
	if s == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidArgument)
	}
	_, err := db.catalog.Define(s)
	db.logger.LogDefine(ctx, s.Name, err)
	return translateError(err)
}

// EntityTypes returns the defined entity types, sorted.
func (db *DB) EntityTypes() []string {
	return db.catalog.Names()
}

// Schema returns the schema of entityType.
func (db *DB) Schema(entityType string) (*schema.EntitySchema, error) {
	col, err := db.catalog.Collection(entityType)
	if err != nil {
		return nil, translateError(err)
	}
	return col.Schema(), nil
}

// Upsert stores e, replacing a previous version with the same type and
// primary key. Indexes are updated before Upsert returns.
func (db *DB) Upsert(ctx context.Context, e *model.Entity) error {
	if db.closed.Load() {
		return ErrClosed
	}
	if e == nil {
		return fmt.Errorf("%w: nil entity", ErrInvalidArgument)
	}
	start := time.Now()

	col, err := db.catalog.Collection(e.Type)
	if err == nil {
		err = col.Upsert(e)
	}
	err = translateError(err)

	db.metrics.RecordUpsert(e.Type, time.Since(start), err)
	db.logger.LogUpsert(ctx, e.Type, e.PrimaryKey, err)
	return err
}

// Remove deletes the entity with primary key pk. It reports whether the
// entity existed.
func (db *DB) Remove(ctx context.Context, entityType string, pk uint32) (bool, error) {
	if db.closed.Load() {
		return false, ErrClosed
	}
	start := time.Now()

	col, err := db.catalog.Collection(entityType)
	err = translateError(err)
	removed := err == nil && col.Remove(pk)

	db.metrics.RecordRemove(entityType, time.Since(start), err)
	db.logger.LogRemove(ctx, entityType, pk, removed, err)
	return removed, err
}

// Get returns a copy of the entity with primary key pk.
// It returns ErrNotFound if the entity does not exist.
func (db *DB) Get(_ context.Context, entityType string, pk uint32) (*model.Entity, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	col, err := db.catalog.Collection(entityType)
	if err != nil {
		return nil, translateError(err)
	}
	e, ok := col.Entity(pk)
	if !ok {
		return nil, fmt.Errorf("%w: %s(%d)", ErrNotFound, entityType, pk)
	}
	return e, nil
}

// Query returns the primary keys of the entities matching q.
//
// The index alternatives able to answer q are compiled into formulas and the
// cheapest one is computed. When the cache is enabled, expensive subtrees
// are served from and offered to the formula result cache.
func (db *DB) Query(ctx context.Context, q *query.Query) (*Result, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	if q == nil {
		return nil, fmt.Errorf("%w: nil query", ErrInvalidArgument)
	}

	id := uuid.NewString()
	logger := db.logger.WithQueryID(id).WithEntityType(q.EntityType)

	res, err := db.engine.Execute(ctx, q)
	if err != nil {
		err = translateError(err)
		db.metrics.RecordQuery(q.EntityType, 0, 0, err)
		logger.LogQuery(ctx, q.String(), 0, 0, err)
		return nil, err
	}

	db.recordPlan(ctx, logger, res.Plan)
	out := &Result{
		QueryID:       id,
		PrimaryKeys:   res.PrimaryKeys.ToArray(),
		Plan:          planDescription(res.Plan),
		EstimatedCost: res.Plan.EstimatedCost(),
		Cost:          res.Cost,
		Duration:      res.Duration,
	}

	db.metrics.RecordQuery(q.EntityType, len(out.PrimaryKeys), res.Duration, nil)
	if db.cache != nil {
		db.metrics.RecordCache(db.cache.Stats())
	}
	logger.LogQuery(ctx, q.String(), len(out.PrimaryKeys), res.Cost, nil)
	return out, nil
}

// Explain plans q without computing it and renders the compared index
// alternatives together with the chosen formula tree. With verbose set, the
// value of every formula node is computed and printed as well.
func (db *DB) Explain(ctx context.Context, q *query.Query, verbose bool) (string, error) {
	if db.closed.Load() {
		return "", ErrClosed
	}
	if q == nil {
		return "", fmt.Errorf("%w: nil query", ErrInvalidArgument)
	}

	p, err := db.engine.Plan(ctx, q)
	if err != nil {
		return "", translateError(err)
	}

	var opts []formula.PrintOption
	if verbose {
		opts = append(opts, formula.Verbose(ctx))
	}
	return p.Explain(opts...), nil
}

// CacheStats returns formula result cache statistics. It returns the zero
// value when the cache is disabled.
func (db *DB) CacheStats() CacheStats {
	if db.cache == nil {
		return CacheStats{}
	}
	return db.cache.Stats()
}

func (db *DB) recordPlan(ctx context.Context, logger *Logger, p *engine.Plan) {
	chosen := p.Chosen()
	reduced := chosen != nil && !chosen.Target.IsGlobal()
	db.metrics.RecordPlan(p.Query.EntityType, len(p.Alternatives), reduced)

	alternatives := make([]string, len(p.Alternatives))
	for i, a := range p.Alternatives {
		alternatives[i] = a.String()
	}
	logger.LogIndexSelection(ctx, alternatives, planDescription(p))
}

func planDescription(p *engine.Plan) string {
	if chosen := p.Chosen(); chosen != nil {
		return chosen.String()
	}
	return "empty"
}
