package registry

import (
	"sync"
	"sync/atomic"
)

// entrySnapshot pairs a materialized copy of an entry's list with the version
// it was built at. Carrying the version inside the published struct makes the
// (snapshot, version) pairing impossible to tear: a reader either sees the
// whole struct or a different one.
type entrySnapshot[T any] struct {
	regs    []registration[T]
	version uint64
}

// versionedEntry holds the registration history for one (type, contract) key.
//
// Mutations are serialized by the entry's own mutex and bump the version
// exactly once; they do not rebuild the snapshot inline, keeping writes O(1)
// regardless of history size. The one exception is a mutation that empties
// the list, which eagerly publishes an empty snapshot so subsequent readers
// fast-exit without re-entering the mutex.
//
// snapshot() is lock-free whenever the cached copy is current, which is the
// steady state once writes have settled.
type versionedEntry[T any] struct {
	mu      sync.Mutex
	list    []registration[T]
	version atomic.Uint64
	snap    atomic.Pointer[entrySnapshot[T]]
}

func (e *versionedEntry[T]) add(reg registration[T]) {
	e.mu.Lock()
	e.list = append(e.list, reg)
	e.version.Add(1)
	e.mu.Unlock()
}

// removeLast pops the most recent registration. It reports whether anything
// was removed and whether the entry is empty afterwards.
func (e *versionedEntry[T]) removeLast() (removed, empty bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(e.list)
	if n == 0 {
		return false, true
	}
	e.list[n-1] = registration[T]{} // drop the reference
	e.list = e.list[:n-1]
	v := e.version.Add(1)
	if n == 1 {
		e.snap.Store(&entrySnapshot[T]{version: v})
		return true, true
	}
	return true, false
}

func (e *versionedEntry[T]) clear() {
	e.mu.Lock()
	e.list = nil
	v := e.version.Add(1)
	e.snap.Store(&entrySnapshot[T]{version: v})
	e.mu.Unlock()
}

// snapshot returns an immutable view of the registration history in
// registration order. The returned slice must not be mutated.
func (e *versionedEntry[T]) snapshot() []registration[T] {
	if s := e.snap.Load(); s != nil && s.version == e.version.Load() {
		return s.regs
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.version.Load()
	if s := e.snap.Load(); s != nil && s.version == v {
		return s.regs
	}
	regs := make([]registration[T], len(e.list))
	copy(regs, e.list)
	e.snap.Store(&entrySnapshot[T]{regs: regs, version: v})
	return regs
}

// last returns the active registration for the key: the most recent one.
func (e *versionedEntry[T]) last() (registration[T], bool) {
	regs := e.snapshot()
	if len(regs) == 0 {
		var zero registration[T]
		return zero, false
	}
	return regs[len(regs)-1], true
}

// size counts registrations without invoking any factory.
func (e *versionedEntry[T]) size() int { return len(e.snapshot()) }
