// Package loci provides a concurrent, generic-first service registry for Go.
//
// The repository is organized around three small packages:
//
//   - registry: the core — a Resolver that stores zero-or-more registrations
//     (constant values or lazily-invoked factories) per (type, contract) key,
//     resolves them with lock-free reads and last-registration-wins semantics,
//     and owns teardown of disposable singletons.
//   - cache: a bounded memoizing MRU cache with release-callback semantics,
//     used to cache expensive per-key computations (e.g. logger instances).
//   - logging: a zap-backed logger manager built on the cache.
//
// The goal is to keep wiring explicit (a Resolver is an ordinary value you
// construct and pass around — there is no process-wide static container),
// avoid reflection-driven injection, and keep the read path cheap enough to
// sit in front of per-request code.
//
// Start with the examples in examples/ for end-to-end wiring style.
package loci
