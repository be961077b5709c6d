package engine

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/internal/planner"
	"github.com/hupe1980/evigo/metadata"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
)

const (
	classIDAttributeInSet   uint64 = 0x3d91c7e5a20b4f68
	classIDAttributeBetween uint64 = 0x58a2e0f4c6d31b97
	classIDReferenceHaving  uint64 = 0x1f6b3a8d9c04e275
	classIDHierarchy        uint64 = 0x74c05e2b1a9f3d86
)

// Compiler translates a filter into a formula evaluated against one index
// alternative.
type Compiler struct {
	catalog    *index.Catalog
	collection *index.Collection
	translator planner.HierarchyTranslator
}

// NewCompiler creates a compiler for queries on col.
func NewCompiler(catalog *index.Catalog, col *index.Collection, translator planner.HierarchyTranslator) *Compiler {
	return &Compiler{catalog: catalog, collection: col, translator: translator}
}

// Compile builds the formula answering filter within target. Every index of
// the target is compiled on its own and the results are united. Within a
// reduced index the constraint that selected it evaluates to the index
// superset, narrowed by the children of that constraint that do not pick
// referenced entities.
func (c *Compiler) Compile(ctx context.Context, filter *query.FilterBy, target *planner.TargetIndexes) (formula.Formula, error) {
	if target.IsEmpty() || len(target.Indexes()) == 0 {
		return formula.Empty, nil
	}
	prices, err := newPriceContext(filter)
	if err != nil {
		return nil, err
	}

	parts := make([]formula.Formula, 0, len(target.Indexes()))
	for _, idx := range target.Indexes() {
		ic := &indexCompilation{
			Compiler: c,
			ctx:      ctx,
			target:   target,
			idx:      idx,
			scope:    idx.Key().Scope,
			superset: formula.NewConstant(idx.PrimaryKeys()),
			prices:   prices,
		}
		f, err := ic.root(filter)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	return or(parts)
}

// indexCompilation holds the state of compiling a filter for one index.
type indexCompilation struct {
	*Compiler
	ctx      context.Context
	target   *planner.TargetIndexes
	idx      *index.EntityIndex
	scope    schema.Scope
	superset formula.Formula
	prices   priceContext
}

func (ic *indexCompilation) root(filter *query.FilterBy) (formula.Formula, error) {
	if filter == nil {
		return ic.superset, nil
	}
	children, err := ic.compileConjunctive(filter.Children())
	if err != nil {
		return nil, err
	}
	return and(append([]formula.Formula{ic.superset}, children...))
}

func (ic *indexCompilation) compileAll(cs []query.Constraint) ([]formula.Formula, error) {
	out := make([]formula.Formula, 0, len(cs))
	for _, ch := range cs {
		f, err := ic.compile(ch)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (ic *indexCompilation) compile(c query.Constraint) (formula.Formula, error) {
	if err := ic.ctx.Err(); err != nil {
		return nil, err
	}
	if c != nil && c == ic.target.Constraint() && ic.idx.Key().Type == index.TypeReducedEntity {
		if rh, ok := c.(*query.ReferenceHaving); ok {
			return ic.referenceHaving(rh, true)
		}
		return ic.superset, nil
	}

	switch c := c.(type) {
	case *query.And:
		return ic.conjunction(c.Children())
	case *query.UserFilter:
		children, err := ic.compileConjunctive(c.Children())
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return ic.superset, nil
		}
		return formula.NewUserFilter(children...)
	case *query.Or:
		children, err := ic.compileAll(c.Children())
		if err != nil {
			return nil, err
		}
		return or(children)
	case *query.Not:
		child, err := ic.compile(c.Child())
		if err != nil {
			return nil, err
		}
		return formula.NewNot(child, ic.superset), nil
	case *query.InScope:
		if !c.Scopes().Contains(ic.scope) {
			return ic.superset, nil
		}
		return ic.conjunction(c.Children())
	case *query.EntityPrimaryKeyInSet:
		return formula.NewConstant(bitmap.FromSlice(c.PrimaryKeys())), nil
	case *query.AttributeEquals:
		ai, _, err := ic.attributes(c.Attribute())
		if err != nil {
			return nil, err
		}
		return formula.NewConstant(ai.Equals(c.Attribute(), c.Value())), nil
	case *query.AttributeInSet:
		return ic.attributeUnion(c.Attribute(), classIDAttributeInSet, c.String(), valueKeys(c.Values()...),
			func(ai *index.AttributeIndex) []bitmap.Bitmap { return ai.InSet(c.Attribute(), c.Values()...) })
	case *query.AttributeBetween:
		return ic.attributeUnion(c.Attribute(), classIDAttributeBetween, c.String(), valueKeys(c.From(), c.To()),
			func(ai *index.AttributeIndex) []bitmap.Bitmap { return ai.Between(c.Attribute(), c.From(), c.To()) })
	case *query.ReferenceHaving:
		return ic.referenceHaving(c, false)
	case *query.HierarchyWithin, *query.HierarchyWithinRoot:
		return ic.hierarchy(c)
	case *query.PriceInCurrency, *query.PriceInPriceLists:
		return ic.priceTermination(formula.PricePredicate{})
	case *query.PriceBetween:
		pred, err := pricePredicate(c)
		if err != nil {
			return nil, err
		}
		return ic.priceTermination(pred)
	case *query.EntityHaving:
		return nil, &planner.InternalInconsistencyError{Detail: "entityHaving outside of referenceHaving"}
	case nil:
		return nil, &planner.InternalInconsistencyError{Detail: "nil constraint"}
	default:
		return nil, &planner.InternalInconsistencyError{Detail: fmt.Sprintf("unsupported constraint %s", c.Name())}
	}
}

// conjunction compiles children as an intersection. No children match every
// entity of the index.
func (ic *indexCompilation) conjunction(cs []query.Constraint) (formula.Formula, error) {
	children, err := ic.compileConjunctive(cs)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return ic.superset, nil
	}
	return and(children)
}

// attributes returns the attribute index serving the current index: its own
// when partitioned, the global one of its scope otherwise.
func (ic *indexCompilation) attributes(name string) (*index.AttributeIndex, index.Key, error) {
	es := ic.collection.Schema()
	if as, ok := es.Attribute(name); !ok || !as.Filterable {
		return nil, index.Key{}, &AttributeNotFilterableError{EntityType: es.Name, Attribute: name}
	}
	if ai, ok := ic.idx.Attributes(); ok {
		return ai, ic.idx.Key(), nil
	}
	global, ok := ic.collection.GlobalIndex(ic.scope)
	if !ok {
		return nil, index.Key{}, &planner.InternalInconsistencyError{Detail: fmt.Sprintf("no global index in %s", ic.scope)}
	}
	ai, _ := global.Attributes()
	return ai, global.Key(), nil
}

func (ic *indexCompilation) attributeUnion(
	attribute string,
	classID uint64,
	name string,
	payload []string,
	lookup func(ai *index.AttributeIndex) []bitmap.Bitmap,
) (formula.Formula, error) {
	ai, owner, err := ic.attributes(attribute)
	if err != nil {
		return nil, err
	}
	buckets := lookup(ai)
	return deferredUnion(formula.SupplierSpec{
		Name:             name,
		ClassID:          classID,
		PayloadHash:      hashStrings(append([]string{ic.collection.Schema().Name, owner.String(), attribute}, payload...)...),
		TransactionalIDs: []uint64{ai.Version(attribute)},
		OperationCost:    1,
	}, buckets), nil
}

// referenceHaving compiles c. When c selected the current reduced index the
// referenced keys are given by the index superset; nested entity filters and
// the remaining children still apply.
func (ic *indexCompilation) referenceHaving(c *query.ReferenceHaving, selected bool) (formula.Formula, error) {
	rs, err := ic.indexedReference(c.Reference())
	if err != nil {
		return nil, err
	}

	var (
		pks    []uint32
		hasPKs bool
		nested []query.Constraint
		rest   []query.Constraint
	)
	for _, ch := range c.Children() {
		switch ch := ch.(type) {
		case *query.EntityPrimaryKeyInSet:
			var set bitmap.Bitmap = bitmap.FromSlice(ch.PrimaryKeys())
			if hasPKs {
				set = bitmap.And(bitmap.FromSlice(pks), set)
			}
			pks, hasPKs = set.ToArray(), true
		case *query.EntityHaving:
			nested = append(nested, ch.Children()...)
		default:
			rest = append(rest, ch)
		}
	}

	var refFormula formula.Formula
	switch {
	case len(nested) > 0:
		refFormula, err = ic.referencedEntityHaving(rs, c, pks, hasPKs, nested)
		if err != nil {
			return nil, err
		}
	case selected:
		refFormula = ic.superset
	case hasPKs:
		refFormula = ic.reducedUnion(rs.Name, classIDReferenceHaving, c.String(), pks)
	default:
		keys := ic.collection.ReducedIndexKeys(ic.scope, rs.Name)
		refFormula = ic.reducedUnion(rs.Name, classIDReferenceHaving, c.String(), keys, ic.collection.ReferenceVersion(ic.scope, rs.Name))
	}

	if len(rest) == 0 {
		return refFormula, nil
	}
	others, err := ic.compileAll(rest)
	if err != nil {
		return nil, err
	}
	return and(append([]formula.Formula{refFormula}, others...))
}

// referencedEntityHaving filters the referenced collection with nested and
// unites the reduced indexes of the matching entities when loaded.
func (ic *indexCompilation) referencedEntityHaving(
	rs schema.ReferenceSchema,
	c *query.ReferenceHaving,
	pks []uint32,
	hasPKs bool,
	nested []query.Constraint,
) (formula.Formula, error) {
	referenced, err := ic.catalog.Collection(rs.ReferencedEntityType)
	if err != nil {
		return nil, err
	}
	global, ok := referenced.GlobalIndex(ic.scope)
	if !ok {
		return formula.Empty, nil
	}

	sub := NewCompiler(ic.catalog, referenced, planner.NewIndexHierarchyTranslator(ic.catalog, referenced.Schema()))
	target := planner.NewTargetIndexes("Global index", nil, index.TypeGlobal, []*index.EntityIndex{global})
	inner, err := sub.Compile(ic.ctx, query.NewFilterBy(nested...), target)
	if err != nil {
		return nil, err
	}
	inner.Initialize(formula.NewCalculationContext())

	refVersion := ic.collection.ReferenceVersion(ic.scope, rs.Name)
	keys := ic.collection.ReducedIndexKeys(ic.scope, rs.Name)
	estimated := 0
	for _, pk := range keys {
		if idx, ok := ic.collection.ReducedIndex(ic.scope, rs.Name, pk); ok {
			estimated += idx.Cardinality()
		}
	}

	scope, reference, col := ic.scope, rs.Name, ic.collection
	supplier := formula.NewLazySupplier(formula.SupplierSpec{
		Name:                 c.String(),
		ClassID:              classIDReferenceHaving,
		PayloadHash:          hashStrings(ic.collection.Schema().Name, ic.scope.String(), c.String()),
		TransactionalIDs:     append(inner.TransactionalIDs(), refVersion),
		EstimatedCardinality: min(estimated, ic.superset.EstimatedCardinality()),
		Load: func(ctx context.Context) (bitmap.Bitmap, error) {
			matched, err := inner.Compute(ctx)
			if err != nil {
				return nil, err
			}
			if hasPKs {
				matched = bitmap.And(matched, bitmap.FromSlice(pks))
			}
			var bms []bitmap.Bitmap
			for _, pk := range matched.ToArray() {
				if idx, ok := col.ReducedIndex(scope, reference, pk); ok {
					bms = append(bms, idx.PrimaryKeys())
				}
			}
			return bitmap.Or(bms...), nil
		},
	})
	return formula.NewDeferred(supplier), nil
}

func (ic *indexCompilation) hierarchy(c query.Constraint) (formula.Formula, error) {
	var reference string
	switch c := c.(type) {
	case *query.HierarchyWithin:
		reference = c.Reference()
	case *query.HierarchyWithinRoot:
		reference = c.Reference()
	}
	rs, err := ic.indexedReference(reference)
	if err != nil {
		return nil, err
	}
	nodes, err := ic.translator.Resolve(ic.ctx, c, ic.scope)
	if err != nil {
		return nil, err
	}
	return ic.reducedUnion(rs.Name, classIDHierarchy, c.String(), nodes.ToArray(), nodes.TransactionalID()), nil
}

// reducedUnion unites the reduced indexes of pks. The payload is the
// constraint rendering; the resolved keys only affect the transactional ids.
// Keys without an index add the reference version.
func (ic *indexCompilation) reducedUnion(reference string, classID uint64, name string, pks []uint32, extraTxIDs ...uint64) formula.Formula {
	refVersion := ic.collection.ReferenceVersion(ic.scope, reference)

	var (
		bms      []bitmap.Bitmap
		versions []uint64
		missing  bool
	)
	for _, pk := range pks {
		idx, ok := ic.collection.ReducedIndex(ic.scope, reference, pk)
		if !ok {
			missing = true
			continue
		}
		snapshot := idx.PrimaryKeys()
		bms = append(bms, snapshot)
		versions = append(versions, snapshot.TransactionalID())
	}

	txIDs := formula.CollapseTransactionalIDs(versions, refVersion)
	if missing || len(pks) == 0 {
		txIDs = append(txIDs, refVersion)
	}
	txIDs = append(txIDs, extraTxIDs...)

	return deferredUnion(formula.SupplierSpec{
		Name:             name,
		ClassID:          classID,
		PayloadHash:      hashStrings(ic.collection.Schema().Name, ic.scope.String(), name),
		TransactionalIDs: txIDs,
	}, bms)
}

// indexedReference checks that reference exists and has reduced indexes in
// the scope of the current index.
func (ic *indexCompilation) indexedReference(reference string) (schema.ReferenceSchema, error) {
	es := ic.collection.Schema()
	rs, ok := es.Reference(reference)
	if !ok {
		return rs, fmt.Errorf("%w: %q in %q", planner.ErrReferenceNotFound, reference, es.Name)
	}
	if !rs.IsIndexedIn(ic.scope) {
		return rs, &planner.ReferenceNotIndexedError{EntityType: es.Name, Reference: reference, Scope: ic.scope}
	}
	return rs, nil
}

// deferredUnion wraps the lazy union of bms into a formula. The estimate
// is the sum of the operand sizes.
func deferredUnion(spec formula.SupplierSpec, bms []bitmap.Bitmap) formula.Formula {
	for _, bm := range bms {
		spec.EstimatedCardinality += bm.Cardinality()
	}
	spec.Load = func(context.Context) (bitmap.Bitmap, error) {
		return bitmap.Or(bms...), nil
	}
	return formula.NewDeferred(formula.NewLazySupplier(spec))
}

func and(inner []formula.Formula) (formula.Formula, error) {
	switch len(inner) {
	case 0:
		return formula.Empty, nil
	case 1:
		return inner[0], nil
	}
	return formula.NewAnd(inner...)
}

func or(inner []formula.Formula) (formula.Formula, error) {
	switch len(inner) {
	case 0:
		return formula.Empty, nil
	case 1:
		return inner[0], nil
	}
	return formula.NewOr(inner...)
}

func valueKeys(values ...metadata.Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Normalize().Key()
	}
	return out
}

func hashStrings(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
