// Package registry implements a concurrent, generic-first service registry.
//
// A Resolver stores zero-or-more registrations per (type, contract) key —
// constant values or lazily-invoked factories — and resolves them with
// last-registration-wins semantics. The full history of a key stays
// addressable: GetServices returns every registration in order, GetService
// returns only the active (most recent) one, and UnregisterCurrent pops
// exactly one.
//
// The package has two faces over one key space:
//
//   - Generic functions (Register[T], GetService[T], ...) for callers that
//     know their types at compile time. Each type gets its own container, so
//     the hot path is a sync.Map hit plus a lock-free snapshot read.
//   - Methods on Resolver (Register, GetService, ...) for callers that only
//     hold a reflect.Type. These land in a type-erased fallback store, and
//     reach generically-registered services through a per-type erased view.
//
// Design goals:
//   - Readers never block: each key caches an immutable snapshot of its
//     registration list, invalidated by a version bump and rebuilt lazily
//     under the key's own mutex. Steady-state reads take no lock at all.
//   - Writers serialize per key only; registering one contract never blocks
//     another.
//   - User code (factories, callbacks) never runs while an internal lock is
//     held, so factories may re-enter the resolver freely.
//   - Misses are boolean results, never errors; invalid arguments and writes
//     to a sealed or closed resolver fail fast with sentinel errors.
//
// Contract names compare as exact strings; the empty string is the default
// contract. A Resolver is closed once with Close, which notifies observers,
// disposes every io.Closer it owns (skipping lazy singletons that never
// materialized) and aggregates per-item failures into the returned error.
package registry
