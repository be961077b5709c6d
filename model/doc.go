// Package model defines the entity data model.
//
// An Entity belongs to one collection (its Type), is identified by a
// PrimaryKey, lives in one schema.Scope, carries typed attributes and
// references entities of other collections. Hierarchical entities also
// have an optional Parent.
//
// Use the builder to construct entities:
//
//	product := model.NewEntity("product", 1).
//	    WithAttribute("code", metadata.String("iphone")).
//	    WithReference("categories", 5, 7).
//	    Build()
package model
