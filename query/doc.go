// Package query defines the immutable filter-constraint tree of a query.
//
// Constraints are tagged variants built with the New* functions:
//
//	q := query.New("product", query.NewFilterBy(
//	    query.NewReferenceHaving("categories",
//	        query.NewEntityPrimaryKeyInSet(5),
//	    ),
//	    query.NewAttributeEquals("color", metadata.String("red")),
//	))
//
// Containers (FilterBy, And, Or, Not, UserFilter, InScope, ReferenceHaving,
// EntityHaving) expose their children through the Container interface.
// The same tree can be read from YAML with ParseFilter.
package query
