package registry

import "sync"

// typeContainer is the contract-less hot path: a single versioned entry
// scoped to one service type.
type typeContainer[T any] struct {
	entry versionedEntry[T]
}

// contractContainer maps contract names to their versioned entries. The map
// itself is guarded by an RWMutex; each entry serializes its own mutations,
// so contention on one contract never blocks operations on another.
//
// Entries whose list becomes empty after a removal are pruned from the map to
// bound its growth, and recreated lazily on the next write. Writers mutate
// entries while holding at least the read lock, so a pruned entry can never
// swallow a concurrent registration.
type contractContainer[T any] struct {
	mu      sync.RWMutex
	entries map[string]*versionedEntry[T]
}

func (c *contractContainer[T]) add(contract string, reg registration[T]) {
	c.mu.RLock()
	if e := c.entries[contract]; e != nil {
		e.add(reg)
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*versionedEntry[T])
	}
	e := c.entries[contract]
	if e == nil {
		e = &versionedEntry[T]{}
		c.entries[contract] = e
	}
	e.add(reg)
}

func (c *contractContainer[T]) removeLast(contract string) {
	c.mu.RLock()
	e := c.entries[contract]
	var empty bool
	if e != nil {
		_, empty = e.removeLast()
	}
	c.mu.RUnlock()
	if e == nil || !empty {
		return
	}

	// Re-check under the write lock: a registration may have landed between
	// unlock and lock.
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.entries[contract]; cur == e {
		e.mu.Lock()
		stillEmpty := len(e.list) == 0
		e.mu.Unlock()
		if stillEmpty {
			delete(c.entries, contract)
		}
	}
}

func (c *contractContainer[T]) removeAll(contract string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.entries[contract]; e != nil {
		e.clear()
		delete(c.entries, contract)
	}
}

func (c *contractContainer[T]) snapshotFor(contract string) []registration[T] {
	c.mu.RLock()
	e := c.entries[contract]
	c.mu.RUnlock()
	if e == nil {
		return nil
	}
	return e.snapshot()
}

// serviceSlot composes the per-type containers for one service type: the
// contract-less entry on the hot path and the named-contract map beside it.
// It also implements containerView so type-erased lookups reach generic
// registrations without a second copy of the data.
type serviceSlot[T any] struct {
	types     typeContainer[T]
	contracts contractContainer[T]
}

func (s *serviceSlot[T]) add(contract string, reg registration[T]) {
	if contract == "" {
		s.types.entry.add(reg)
		return
	}
	s.contracts.add(contract, reg)
}

func (s *serviceSlot[T]) snapshotFor(contract string) []registration[T] {
	if contract == "" {
		return s.types.entry.snapshot()
	}
	return s.contracts.snapshotFor(contract)
}

func (s *serviceSlot[T]) last(contract string) (registration[T], bool) {
	regs := s.snapshotFor(contract)
	if len(regs) == 0 {
		var zero registration[T]
		return zero, false
	}
	return regs[len(regs)-1], true
}

// values materializes the full registration history in registration order.
// Factories run here, after all internal locks have been released.
func (s *serviceSlot[T]) values(contract string) []T {
	regs := s.snapshotFor(contract)
	if len(regs) == 0 {
		return nil
	}
	out := make([]T, len(regs))
	for i, reg := range regs {
		out[i] = reg.value()
	}
	return out
}

// containerView is the type-erased capability surface of a serviceSlot. The
// resolver stores one per service type, keyed by reflect.Type, so lookups by
// runtime type reach generically-registered services without runtime code
// generation.
type containerView interface {
	lastAny(contract string) (any, bool)
	valuesAny(contract string) []any
	count(contract string) int
	removeLast(contract string)
	removeAll(contract string)
}

func (s *serviceSlot[T]) lastAny(contract string) (any, bool) {
	reg, ok := s.last(contract)
	if !ok {
		return nil, false
	}
	return reg.value(), true
}

func (s *serviceSlot[T]) valuesAny(contract string) []any {
	regs := s.snapshotFor(contract)
	if len(regs) == 0 {
		return nil
	}
	out := make([]any, len(regs))
	for i, reg := range regs {
		out[i] = reg.value()
	}
	return out
}

func (s *serviceSlot[T]) count(contract string) int {
	return len(s.snapshotFor(contract))
}

func (s *serviceSlot[T]) removeLast(contract string) {
	if contract == "" {
		s.types.entry.removeLast()
		return
	}
	s.contracts.removeLast(contract)
}

func (s *serviceSlot[T]) removeAll(contract string) {
	if contract == "" {
		s.types.entry.clear()
		return
	}
	s.contracts.removeAll(contract)
}
