package registry

import (
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// nullServiceType is the private marker occupying a real map slot when a
// caller registers against a nil service type. It never leaks to callers:
// lookups with a nil type land on the same key and resolve transparently.
type nullServiceType struct{}

var nullType = reflect.TypeOf(nullServiceType{})

// Options control resolver behavior.
type Options struct {
	// Logger receives V(1) traces for registration, unregistration, sealing
	// and teardown. Defaults to logr.Discard().
	Logger logr.Logger
}

// Option modifies Options.
type Option func(*Options)

// WithLogger sets the trace logger.
func WithLogger(log logr.Logger) Option { return func(o *Options) { o.Logger = log } }

// teardown yields the value a registration would dispose, and whether a value
// exists to dispose at all. Lazy singletons report false until materialized.
type teardown func() (any, bool)

// Resolver is the registry façade. It stores zero-or-more registrations per
// (type, contract) key — constant values or factories — and resolves them
// with last-registration-wins semantics.
//
// Generically-typed traffic goes through the package-level functions
// (Register, GetService, ...); the methods on Resolver are the type-erased
// surface for callers that only hold a reflect.Type. Both views address the
// same logical key space.
//
// A Resolver is an ordinary value: construct one with New, pass it to
// consumers, Close it at teardown. There is no process-wide instance.
type Resolver struct {
	log logr.Logger

	// reflect.Type -> containerView (concrete *serviceSlot[T])
	slots    sync.Map
	fallback fallbackRegistry
	notify   notifier

	// anything flips on the first registration ever; while unset, reads
	// short-circuit without touching any map.
	anything atomic.Bool
	sealed   atomic.Bool
	closed   atomic.Bool

	tmu       sync.Mutex
	teardowns []teardown
}

// New creates an empty resolver.
func New(opts ...Option) *Resolver {
	o := Options{Logger: logr.Discard()}
	for _, fn := range opts {
		fn(&o)
	}
	return &Resolver{log: o.Logger}
}

// mutable gates every write path.
func (r *Resolver) mutable() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if r.sealed.Load() {
		return ErrSealed
	}
	return nil
}

// Sealed reports whether the resolver is sealed.
func (r *Resolver) Sealed() bool { return r.sealed.Load() }

// Seal freezes the resolver: further registrations and unregistrations fail
// with ErrSealed. Idempotent; returns true if this call changed the state.
func (r *Resolver) Seal() bool {
	first := !r.sealed.Swap(true)
	if first {
		r.log.V(1).Info("resolver sealed")
	}
	return first
}

// normalizeType maps a nil service type onto the private marker key.
func normalizeType(serviceType reflect.Type) reflect.Type {
	if serviceType == nil {
		return nullType
	}
	return serviceType
}

// markRegistered runs the common post-registration steps: flip the global
// flag, notify observers, trace.
func (r *Resolver) markRegistered(k serviceKey) {
	r.anything.CompareAndSwap(false, true)
	r.notify.fire(k)
	r.log.V(1).Info("service registered", "type", k.serviceType.String(), "contract", k.contract)
}

func (r *Resolver) recordTeardown(td teardown) {
	r.tmu.Lock()
	r.teardowns = append(r.teardowns, td)
	r.tmu.Unlock()
}

// Register adds a factory registration for serviceType under contract. A nil
// serviceType is accepted and keyed through a private marker. The factory is
// invoked on every resolution.
func (r *Resolver) Register(factory func() any, serviceType reflect.Type, contract string) error {
	if factory == nil {
		return ErrNilFactory
	}
	if err := r.mutable(); err != nil {
		return err
	}
	k := serviceKey{normalizeType(serviceType), contract}
	r.fallback.add(k, factoryOf(factory))
	r.recordTeardown(func() (any, bool) { return factory(), true })
	r.markRegistered(k)
	return nil
}

// RegisterValue adds a constant registration for serviceType under contract.
func (r *Resolver) RegisterValue(value any, serviceType reflect.Type, contract string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	k := serviceKey{normalizeType(serviceType), contract}
	r.fallback.add(k, constantOf(value))
	r.recordTeardown(func() (any, bool) { return value, true })
	r.markRegistered(k)
	return nil
}

// view returns the erased view of the typed container for serviceType, if one
// was ever created by the generic API.
func (r *Resolver) view(serviceType reflect.Type) containerView {
	v, ok := r.slots.Load(serviceType)
	if !ok {
		return nil
	}
	return v.(containerView)
}

// GetService resolves the active (most recent) registration for the key.
// Misses return (nil, false) and never an error or panic; a panicking user
// factory propagates unmodified.
func (r *Resolver) GetService(serviceType reflect.Type, contract string) (any, bool) {
	if !r.anything.Load() {
		return nil, false
	}
	serviceType = normalizeType(serviceType)
	if view := r.view(serviceType); view != nil {
		if v, ok := view.lastAny(contract); ok {
			return v, true
		}
	}
	k := serviceKey{serviceType, contract}
	if r.fallback.has(k) {
		if reg, ok := r.fallback.last(k); ok {
			return reg.value(), true
		}
	}
	return nil, false
}

// GetServices resolves the full registration history for the key in
// registration order: generically-registered services first, then
// erased-path services.
func (r *Resolver) GetServices(serviceType reflect.Type, contract string) []any {
	if !r.anything.Load() {
		return nil
	}
	serviceType = normalizeType(serviceType)
	var out []any
	if view := r.view(serviceType); view != nil {
		out = view.valuesAny(contract)
	}
	k := serviceKey{serviceType, contract}
	if r.fallback.has(k) {
		for _, reg := range r.fallback.snapshotFor(k) {
			out = append(out, reg.value())
		}
	}
	return out
}

// HasRegistration reports whether any registration exists for the key. No
// factory is invoked.
func (r *Resolver) HasRegistration(serviceType reflect.Type, contract string) bool {
	if !r.anything.Load() {
		return false
	}
	serviceType = normalizeType(serviceType)
	if view := r.view(serviceType); view != nil && view.count(contract) > 0 {
		return true
	}
	return r.fallback.has(serviceKey{serviceType, contract})
}

// registrationCount counts the key's registrations across both paths without
// invoking any factory.
func (r *Resolver) registrationCount(k serviceKey) int {
	n := 0
	if view := r.view(k.serviceType); view != nil {
		n += view.count(k.contract)
	}
	if r.fallback.has(k) {
		n += r.fallback.size(k)
	}
	return n
}

// UnregisterCurrent removes the most recent registration for the key, giving
// the typed container precedence over the fallback store — the same order
// resolution reads them. Removing from an empty key is a no-op.
func (r *Resolver) UnregisterCurrent(serviceType reflect.Type, contract string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	serviceType = normalizeType(serviceType)
	if view := r.view(serviceType); view != nil && view.count(contract) > 0 {
		view.removeLast(contract)
		return nil
	}
	r.fallback.removeLast(serviceKey{serviceType, contract})
	return nil
}

// UnregisterAll removes every registration for the key, collapsing it back to
// the unregistered state.
func (r *Resolver) UnregisterAll(serviceType reflect.Type, contract string) error {
	if err := r.mutable(); err != nil {
		return err
	}
	serviceType = normalizeType(serviceType)
	if view := r.view(serviceType); view != nil {
		view.removeAll(contract)
	}
	r.fallback.removeAll(serviceKey{serviceType, contract})
	r.log.V(1).Info("service unregistered", "type", serviceType.String(), "contract", contract)
	return nil
}

// OnRegistered subscribes to registration changes for the key. The callback
// fires once immediately per existing registration (counted without invoking
// any factory), then once per new registration until the subscription is
// released.
func (r *Resolver) OnRegistered(serviceType reflect.Type, contract string, callback func()) (*Subscription, error) {
	if callback == nil {
		return nil, ErrNilCallback
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}
	k := serviceKey{normalizeType(serviceType), contract}
	for n := r.registrationCount(k); n > 0; n-- {
		callback()
	}
	list := r.notify.listFor(k)
	sub := &Subscription{list: list, cb: callback}
	list.add(sub)
	return sub, nil
}

// Close tears the resolver down: every subscribed callback is invoked one
// final time, then every registration ever made gets a disposal attempt —
// factories are invoked for their current value, constants are used as-is,
// and lazy singletons that never materialized are skipped rather than forced
// into existence. Values implementing io.Closer are closed.
//
// Per-item panics and close errors never abort the walk; they are aggregated
// into the returned error. Close is idempotent and is not linearizable with
// concurrent readers: racing reads during teardown may observe partially
// cleared state.
func (r *Resolver) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.log.V(1).Info("resolver closing")

	var errs error
	for _, cb := range r.notify.drain() {
		errs = multierr.Append(errs, protect(func() error {
			cb()
			return nil
		}))
	}

	r.tmu.Lock()
	tds := r.teardowns
	r.teardowns = nil
	r.tmu.Unlock()

	for _, td := range tds {
		errs = multierr.Append(errs, protect(func() error {
			v, ok := td()
			if !ok || v == nil {
				return nil
			}
			if c, ok := v.(io.Closer); ok {
				return c.Close()
			}
			return nil
		}))
	}

	r.slots.Range(func(key, _ any) bool {
		r.slots.Delete(key)
		return true
	})
	r.fallback.clear()
	r.anything.Store(false)
	return errs
}

// protect runs fn, converting a panic into an error so one broken disposer
// cannot block cleanup of the rest.
func protect(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("registry: panic during teardown: %v", rec)
		}
	}()
	return fn()
}
