package planner

import (
	"context"
	"fmt"

	"github.com/hupe1980/evigo/internal/bitmap"
	"github.com/hupe1980/evigo/internal/index"
	"github.com/hupe1980/evigo/query"
	"github.com/hupe1980/evigo/schema"
)

// HierarchyTranslator resolves hierarchy constraints to the primary keys of
// the selected hierarchy nodes.
type HierarchyTranslator interface {
	Resolve(ctx context.Context, c query.Constraint, scope schema.Scope) (bitmap.Bitmap, error)
}

// IndexHierarchyTranslator resolves hierarchy constraints of one entity type
// against the hierarchy indexes of the referenced collections.
type IndexHierarchyTranslator struct {
	catalog *index.Catalog
	schema  *schema.EntitySchema
}

var _ HierarchyTranslator = (*IndexHierarchyTranslator)(nil)

// NewIndexHierarchyTranslator creates a translator for constraints on
// entities described by s.
func NewIndexHierarchyTranslator(catalog *index.Catalog, s *schema.EntitySchema) *IndexHierarchyTranslator {
	return &IndexHierarchyTranslator{catalog: catalog, schema: s}
}

// Resolve returns the selected nodes of the hierarchy referenced by c in
// scope. The bitmap is tagged with the hierarchy version.
func (t *IndexHierarchyTranslator) Resolve(ctx context.Context, c query.Constraint, scope schema.Scope) (bitmap.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		reference string
		resolve   func(h *index.HierarchyIndex) bitmap.Bitmap
	)
	switch c := c.(type) {
	case *query.HierarchyWithin:
		reference = c.Reference()
		resolve = func(h *index.HierarchyIndex) bitmap.Bitmap {
			return h.NodesWithin(c.Parent(), c.Options())
		}
	case *query.HierarchyWithinRoot:
		reference = c.Reference()
		resolve = func(h *index.HierarchyIndex) bitmap.Bitmap {
			return h.NodesWithinRoot(c.Options())
		}
	default:
		return nil, &InternalInconsistencyError{Detail: fmt.Sprintf("%s is not a hierarchy constraint", c.Name())}
	}

	rs, ok := t.schema.Reference(reference)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %q", ErrReferenceNotFound, reference, t.schema.Name)
	}
	col, err := t.catalog.Collection(rs.ReferencedEntityType)
	if err != nil {
		return nil, err
	}
	if !col.Schema().Hierarchical {
		return nil, fmt.Errorf("%w: %q references %q", ErrReferenceNotHierarchical, reference, rs.ReferencedEntityType)
	}
	h, ok := col.Hierarchy(scope)
	if !ok {
		return bitmap.Empty, nil
	}
	return resolve(h), nil
}
