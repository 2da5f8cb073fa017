package registry

import "reflect"

// TypeOf returns the reflect.Type for T without allocating a T. It is the
// bridge between the generic and type-erased halves of the API.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// slotFor returns the typed container for T, creating it on first use. The
// slot doubles as the type-erased containerView the resolver's methods read.
func slotFor[T any](r *Resolver, create bool) *serviceSlot[T] {
	t := TypeOf[T]()
	if v, ok := r.slots.Load(t); ok {
		return v.(*serviceSlot[T])
	}
	if !create {
		return nil
	}
	v, _ := r.slots.LoadOrStore(t, &serviceSlot[T]{})
	return v.(*serviceSlot[T])
}

// Register adds a factory registration for T under contract ("" = default).
// The factory runs on every resolution, always outside internal locks, so it
// may itself re-enter the resolver.
func Register[T any](r *Resolver, factory func() T, contract string) error {
	if factory == nil {
		return ErrNilFactory
	}
	if err := r.mutable(); err != nil {
		return err
	}
	slotFor[T](r, true).add(contract, factoryOf(factory))
	r.recordTeardown(func() (any, bool) { return factory(), true })
	r.markRegistered(serviceKey{TypeOf[T](), contract})
	return nil
}

// RegisterConstant adds a constant registration for T under contract.
func RegisterConstant[T any](r *Resolver, value T, contract string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	slotFor[T](r, true).add(contract, constantOf(value))
	r.recordTeardown(func() (any, bool) { return value, true })
	r.markRegistered(serviceKey{TypeOf[T](), contract})
	return nil
}

// RegisterLazySingleton wraps factory in a construct-once cell and registers
// the cell's accessor: the first resolution evaluates the factory exactly
// once, concurrent first callers block for that evaluation, and everyone gets
// the same instance. The cell — not a forced value — is what teardown
// inspects, so a never-resolved singleton is never built just to be disposed.
func RegisterLazySingleton[T any](r *Resolver, factory func() T, contract string) error {
	if factory == nil {
		return ErrNilFactory
	}
	if err := r.mutable(); err != nil {
		return err
	}
	cell := newLazyCell(factory)
	slotFor[T](r, true).add(contract, factoryOf(cell.get))
	r.recordTeardown(func() (any, bool) {
		v, ok := cell.peek()
		if !ok {
			return nil, false
		}
		return v, true
	})
	r.markRegistered(serviceKey{TypeOf[T](), contract})
	return nil
}

// GetService resolves the active registration for T. The boolean result is
// the only miss signal; it never panics on an unknown key.
func GetService[T any](r *Resolver, contract string) (T, bool) {
	var zero T
	if !r.anything.Load() {
		return zero, false
	}
	if slot := slotFor[T](r, false); slot != nil {
		if reg, ok := slot.last(contract); ok {
			return reg.value(), true
		}
	}
	k := serviceKey{TypeOf[T](), contract}
	if r.fallback.has(k) {
		if reg, ok := r.fallback.last(k); ok {
			if v, ok := reg.value().(T); ok {
				return v, true
			}
		}
	}
	return zero, false
}

// GetServices resolves the full registration history for T in registration
// order, generic registrations first, then erased-path ones. Erased values
// that do not assert to T are skipped.
func GetServices[T any](r *Resolver, contract string) []T {
	if !r.anything.Load() {
		return nil
	}
	var out []T
	if slot := slotFor[T](r, false); slot != nil {
		out = slot.values(contract)
	}
	k := serviceKey{TypeOf[T](), contract}
	if r.fallback.has(k) {
		for _, reg := range r.fallback.snapshotFor(k) {
			if v, ok := reg.value().(T); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

// HasRegistration reports whether any registration exists for T under
// contract, without invoking any factory.
func HasRegistration[T any](r *Resolver, contract string) bool {
	return r.HasRegistration(TypeOf[T](), contract)
}

// UnregisterCurrent removes the most recent registration for T under
// contract; a no-op when the key has none.
func UnregisterCurrent[T any](r *Resolver, contract string) error {
	return r.UnregisterCurrent(TypeOf[T](), contract)
}

// UnregisterAll removes every registration for T under contract.
func UnregisterAll[T any](r *Resolver, contract string) error {
	return r.UnregisterAll(TypeOf[T](), contract)
}

// OnRegistered subscribes to registration changes for T under contract.
func OnRegistered[T any](r *Resolver, contract string, callback func()) (*Subscription, error) {
	return r.OnRegistered(TypeOf[T](), contract, callback)
}
