// Package formula implements the lazy algebra of primary-key set operations
// that every query is compiled into.
//
// # Algebra
//
// A Formula is an immutable node of a DAG. Leaves wrap a bitmap (Constant),
// a lazily loaded bitmap supplier (Deferred) or nothing at all (Empty).
// Composites combine their inner formulas:
//
//	And(a, b, ...)         intersection
//	Or(a, b, ...)          union
//	UserFilter(a, b, ...)  intersection of the user-supplied part of a filter
//	Not(subtracted, sup)   sup minus subtracted
//	PriceTermination(d)    entities of d whose selling price matches
//
// Compute is lazy and memoized per instance. Because a node never changes
// after construction and every leaf is pinned to one index version, the
// memoized result stays valid for as long as the instance lives. Rewrites
// never modify a node; they produce new nodes (see Clone).
//
// # Transactional data
//
// Each node exposes a content hash, the transactional ids (index versions)
// it depends on and a cost model. An external cache keys results by
// (Hash, TransactionalIDHash) and uses CostToPerformanceRatio to decide which
// subtrees are worth keeping. Initialize must be called with a
// CalculationContext before the metadata is read; shared subtrees with equal
// hashes contribute their cost only once per context.
//
// # Traversal
//
// Visitors recurse on their own. The package ships four of them:
//
//	Clone                 structural rewrite with maximal sharing
//	Find / FindOfType     typed subtree search
//	Contains              short-circuiting existence check
//	Print                 indented diagnostic dump
package formula
