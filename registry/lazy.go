package registry

import (
	"sync"
	"sync/atomic"
)

const (
	lazyUnevaluated int32 = iota
	lazyEvaluated
	lazyFailed
)

// lazyCell evaluates a factory at most once. Concurrent first callers block
// on the cell's mutex until the single evaluation completes and all observe
// the same value. The cell distinguishes "never touched" from "evaluated to a
// zero value" so teardown can skip materialization it would otherwise force.
//
// A panicking factory moves the cell to the failed state and the panic value
// is replayed to later callers; the factory is never retried.
type lazyCell[T any] struct {
	mu       sync.Mutex
	state    atomic.Int32
	factory  func() T
	value    T
	panicked any
}

func newLazyCell[T any](factory func() T) *lazyCell[T] {
	return &lazyCell[T]{factory: factory}
}

func (l *lazyCell[T]) get() T {
	if l.state.Load() == lazyEvaluated {
		return l.value
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state.Load() {
	case lazyEvaluated:
		return l.value
	case lazyFailed:
		panic(l.panicked)
	}

	defer func() {
		if r := recover(); r != nil {
			l.panicked = r
			l.state.Store(lazyFailed)
			panic(r)
		}
	}()
	v := l.factory()
	l.value = v
	l.factory = nil
	l.state.Store(lazyEvaluated)
	return v
}

// peek reports the materialized value without forcing evaluation.
func (l *lazyCell[T]) peek() (T, bool) {
	if l.state.Load() == lazyEvaluated {
		return l.value, true
	}
	var zero T
	return zero, false
}
