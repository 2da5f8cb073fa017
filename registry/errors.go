package registry

import "errors"

var (
	// ErrNilFactory is returned when a registration is attempted with a nil
	// factory function. The check runs before any state mutation.
	ErrNilFactory = errors.New("registry: nil factory")

	// ErrNilCallback is returned by OnRegistered when the callback is nil.
	ErrNilCallback = errors.New("registry: nil callback")

	// ErrSealed is returned when a mutating call reaches a sealed resolver.
	// Registrations are never dropped silently; a miss later would be far
	// harder to diagnose than a loud failure here.
	ErrSealed = errors.New("registry: sealed resolver")

	// ErrClosed is returned when a mutating call reaches a closed resolver.
	ErrClosed = errors.New("registry: closed resolver")
)
