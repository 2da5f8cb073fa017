// Package cache provides a bounded, memoizing most-recently-used cache.
//
// An MRU keeps at most maxSize entries. Values are produced on demand by a
// user-supplied calculation function, promoted to the front of the recency
// order on every hit, and evicted from the tail (the least recently used
// entry) when the cache grows past its bound. An optional release callback
// fires exactly once for every entry that leaves the cache, whether by
// eviction or by explicit invalidation.
//
// The calculation function must be pure: the cache runs it without holding
// its internal lock (it may be expensive or re-enter the cache), and when two
// goroutines race to fill the same key, one result is kept and the other is
// silently discarded.
//
// Notes on performance:
//   - Hits are a map lookup plus an O(1) list relink under a single mutex.
//   - Misses pay for the calculation outside the lock, then a double-checked
//     insert.
package cache
