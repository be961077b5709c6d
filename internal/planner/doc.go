// Package planner selects the physical indexes a filter is evaluated on.
//
// A Selector walks the constraint tree of one query. It always registers
// the baseline, the global indexes of every queried scope, followed by one
// alternative per reference or hierarchy constraint found on the
// conjunctive spine of the filter (filterBy, and, userFilter, inScope). An
// alternative is the union of the reduced indexes of the referenced
// entities.
//
// Alternatives carry eligibility obstacles. Only alternatives without
// obstacles can be compiled into a standalone plan; the baseline always
// can. A constraint that provably matches nothing registers
// EmptyTargetIndexes, which lets the caller skip compilation entirely.
package planner
