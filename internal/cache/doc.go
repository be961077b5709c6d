// Package cache memoizes formula results across queries.
//
// # Admission
//
// Results pass two stages. The anteroom counts how often a formula hash is
// requested. After a query computed its formula, Feed offers every computed
// subtree; a result is admitted to eden when its usage reached
// MinimalUsageThreshold and its cost-to-performance ratio reached
// MinimalComplexityThreshold. Concurrent fills of the same entry are
// collapsed.
//
// # Eden
//
// Eden is an LRU bounded by payload bytes. Payloads are roaring
// serializations compressed with LZ4 or ZSTD. Memory is reserved through the
// shared resource.Controller, which also rate limits admitted bytes.
//
// # Invalidation
//
// Every entry remembers the transactional id hash of the formula it was
// computed for. Analyse serves an entry only when the live formula has the
// same hash and the same transactional id hash; stale entries are dropped on
// sight.
package cache
