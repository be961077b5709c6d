package query

import (
	"fmt"

	"github.com/hupe1980/evigo/schema"
)

// Query selects entities of one collection.
type Query struct {
	EntityType string
	// Scopes the query runs in. Empty means schema.DefaultScopes.
	Scopes schema.ScopeSet
	Filter *FilterBy
}

// New creates a query. Without scopes it runs in schema.DefaultScopes.
func New(entityType string, filter *FilterBy, scopes ...schema.Scope) *Query {
	return &Query{
		EntityType: entityType,
		Scopes:     schema.NewScopeSet(scopes...),
		Filter:     filter,
	}
}

// ActiveScopes returns the scopes the query runs in.
func (q *Query) ActiveScopes() schema.ScopeSet {
	if q.Scopes.IsEmpty() {
		return schema.DefaultScopes
	}
	return q.Scopes
}

// String returns a string representation of the Query.
func (q *Query) String() string {
	filter := "filterBy()"
	if q.Filter != nil {
		filter = q.Filter.String()
	}
	return fmt.Sprintf("query(collection('%s'), scope%s, %s)", q.EntityType, q.ActiveScopes(), filter)
}
