package registry

// registration is one addition to a key's history: either a constant value or
// a factory producing one. Exactly one branch is meaningful, selected by the
// discriminant; a registration is immutable once constructed.
type registration[T any] struct {
	instance   T
	factory    func() T
	isInstance bool
}

func constantOf[T any](v T) registration[T] {
	return registration[T]{instance: v, isInstance: true}
}

func factoryOf[T any](fn func() T) registration[T] {
	return registration[T]{factory: fn}
}

// value materializes the registration. For factory registrations this invokes
// user code, so callers must not hold any internal lock.
func (r registration[T]) value() T {
	if r.isInstance {
		return r.instance
	}
	return r.factory()
}
