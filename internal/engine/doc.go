// Package engine plans and executes entity queries.
//
// A query runs through three stages:
//   - Index selection (internal/planner) registers the global baseline and
//     the reduced index alternatives the filter allows.
//   - The Compiler turns the filter into one formula per alternative. The
//     cheapest alternative by estimated cost wins.
//   - The executor computes the chosen formula under a QueryBudget and feeds
//     the computed subtrees into the formula cache.
package engine
