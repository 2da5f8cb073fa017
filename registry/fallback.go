package registry

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// serviceKey addresses one registration history: a runtime type identity plus
// a contract name. Contracts compare as exact strings; "" is the default.
type serviceKey struct {
	serviceType reflect.Type
	contract    string
}

// fallbackRegistry is the type-erased counterpart to the generic containers.
// Registrations made through runtime-type APIs land here, since no typed
// container can exist for a type unknown at compile time.
//
// Alongside the entry map it republishes an immutable set of live keys after
// every write, so the resolver can answer "does any erased registration exist
// for this key" without taking the lock or materializing a snapshot.
type fallbackRegistry struct {
	mu      sync.RWMutex
	entries map[serviceKey]*versionedEntry[any]
	known   atomic.Pointer[map[serviceKey]struct{}]
}

func (f *fallbackRegistry) has(k serviceKey) bool {
	m := f.known.Load()
	if m == nil {
		return false
	}
	_, ok := (*m)[k]
	return ok
}

func (f *fallbackRegistry) add(k serviceKey, reg registration[any]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries == nil {
		f.entries = make(map[serviceKey]*versionedEntry[any])
	}
	e := f.entries[k]
	if e == nil {
		e = &versionedEntry[any]{}
		f.entries[k] = e
	}
	e.add(reg)
	f.republishLocked()
}

func (f *fallbackRegistry) snapshotFor(k serviceKey) []registration[any] {
	f.mu.RLock()
	e := f.entries[k]
	f.mu.RUnlock()
	if e == nil {
		return nil
	}
	return e.snapshot()
}

func (f *fallbackRegistry) last(k serviceKey) (registration[any], bool) {
	regs := f.snapshotFor(k)
	if len(regs) == 0 {
		var zero registration[any]
		return zero, false
	}
	return regs[len(regs)-1], true
}

func (f *fallbackRegistry) size(k serviceKey) int {
	return len(f.snapshotFor(k))
}

func (f *fallbackRegistry) removeLast(k serviceKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[k]
	if e == nil {
		return
	}
	if _, empty := e.removeLast(); empty {
		delete(f.entries, k)
	}
	f.republishLocked()
}

func (f *fallbackRegistry) removeAll(k serviceKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.entries[k]; e != nil {
		e.clear()
		delete(f.entries, k)
		f.republishLocked()
	}
}

func (f *fallbackRegistry) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	f.known.Store(nil)
}

// republishLocked rebuilds the known-keys set. Callers must hold mu.
func (f *fallbackRegistry) republishLocked() {
	m := make(map[serviceKey]struct{}, len(f.entries))
	for k := range f.entries {
		m[k] = struct{}{}
	}
	f.known.Store(&m)
}
