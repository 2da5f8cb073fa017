package cache

import (
	"container/list"
	"errors"
	"sync"

	"go.uber.org/multierr"
)

var (
	// ErrInvalidSize is returned by New when maxSize is less than one.
	ErrInvalidSize = errors.New("cache: max size must be at least one")

	// ErrNilCalc is returned by New when the calculation function is nil.
	ErrNilCalc = errors.New("cache: nil calculation function")
)

// Option configures an MRU at construction time.
type Option[V any] func(*options[V])

type options[V any] struct {
	release func(V) error
}

// WithRelease installs a callback invoked once for every value that leaves
// the cache (eviction or invalidation). Release errors surface through
// Invalidate/InvalidateAll; on eviction inside Get they are dropped, since
// Get has no error channel.
func WithRelease[V any](fn func(V) error) Option[V] {
	return func(o *options[V]) { o.release = fn }
}

// mruEntry is the payload stored in each recency-list element.
type mruEntry[K comparable, V any] struct {
	key   K
	value V
}

// MRU is a bounded memoizing cache keyed by K.
//
// All methods are safe for concurrent use. The recency list and the entry map
// always hold the same keys, and never more than maxSize of them.
type MRU[K comparable, V any] struct {
	mu      sync.Mutex
	max     int
	calc    func(K, any) V
	release func(V) error

	entries map[K]*list.Element
	order   *list.List // front = most recently used
}

// New constructs an MRU holding at most maxSize entries, filled on demand by
// calc. calc receives the missing key plus the opaque context passed to Get.
func New[K comparable, V any](maxSize int, calc func(K, any) V, opts ...Option[V]) (*MRU[K, V], error) {
	if maxSize < 1 {
		return nil, ErrInvalidSize
	}
	if calc == nil {
		return nil, ErrNilCalc
	}
	var o options[V]
	for _, fn := range opts {
		fn(&o)
	}
	return &MRU[K, V]{
		max:     maxSize,
		calc:    calc,
		release: o.release,
		entries: make(map[K]*list.Element),
		order:   list.New(),
	}, nil
}

// Get returns the cached value for key, computing it on first use.
//
// context is handed through to the calculation function untouched; pass nil
// when the function does not need it.
func (c *MRU[K, V]) Get(key K, context any) V {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		v := el.Value.(*mruEntry[K, V]).value
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	// The calculation may be expensive or re-enter the cache, so it runs
	// without the lock held.
	v := c.calc(key, context)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		// Another goroutine filled the key while we computed. calc is
		// required to be pure, so the duplicate result is discarded.
		c.order.MoveToFront(el)
		return el.Value.(*mruEntry[K, V]).value
	}
	el := c.order.PushFront(&mruEntry[K, V]{key: key, value: v})
	c.entries[key] = el
	c.maintainLocked()
	return v
}

// TryGet returns the cached value for key without computing it. A hit still
// counts as a use and promotes the entry.
func (c *MRU[K, V]) TryGet(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*mruEntry[K, V]).value, true
}

// Invalidate drops key from the cache, if present, and invokes the release
// callback on its value after the entry has left the live structures.
func (c *MRU[K, V]) Invalidate(key K) error {
	c.mu.Lock()
	el, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	ent := el.Value.(*mruEntry[K, V])
	c.order.Remove(el)
	delete(c.entries, key)
	c.mu.Unlock()

	if c.release != nil {
		return c.release(ent.value)
	}
	return nil
}

// InvalidateAll empties the cache. Fresh structures are swapped in under the
// lock; release callbacks then run against the detached entries outside it.
//
// With aggregate set, every release is attempted and their errors are
// combined into one. Otherwise the first release error is returned
// immediately and the remaining callbacks are skipped.
func (c *MRU[K, V]) InvalidateAll(aggregate bool) error {
	c.mu.Lock()
	old := c.order
	c.entries = make(map[K]*list.Element)
	c.order = list.New()
	c.mu.Unlock()

	if c.release == nil {
		return nil
	}
	var errs error
	for el := old.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*mruEntry[K, V])
		if err := c.release(ent.value); err != nil {
			if !aggregate {
				return err
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Values returns a snapshot of the cached values, most recently used first.
func (c *MRU[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]V, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*mruEntry[K, V]).value)
	}
	return out
}

// Len reports the number of live entries.
func (c *MRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// maintainLocked evicts from the tail until the cache is within bound.
// Callers must hold mu.
func (c *MRU[K, V]) maintainLocked() {
	for len(c.entries) > c.max {
		el := c.order.Back()
		ent := el.Value.(*mruEntry[K, V])
		if c.release != nil {
			_ = c.release(ent.value)
		}
		c.order.Remove(el)
		delete(c.entries, ent.key)
	}
}
