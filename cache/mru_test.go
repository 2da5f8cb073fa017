package cache_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/kdris/loci/cache"
)

func upper(k string, _ any) string {
	out := make([]byte, len(k))
	for i := 0; i < len(k); i++ {
		out[i] = k[i] &^ 0x20
	}
	return string(out)
}

func TestNew_ArgumentValidation(t *testing.T) {
	t.Parallel()

	_, err := cache.New[string, string](0, upper)
	require.ErrorIs(t, err, cache.ErrInvalidSize)

	_, err = cache.New[string, string](1, nil)
	require.ErrorIs(t, err, cache.ErrNilCalc)
}

func TestGet_ComputesOnceAndPromotes(t *testing.T) {
	t.Parallel()

	calls := 0
	c, err := cache.New(3, func(k string, ctx any) string {
		calls++
		assert.Equal(t, "hint", ctx)
		return upper(k, nil)
	})
	require.NoError(t, err)

	assert.Equal(t, "A", c.Get("a", "hint"))
	assert.Equal(t, "A", c.Get("a", "hint"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestEvictionOrder_LeastRecentlyUsedGoesFirst(t *testing.T) {
	t.Parallel()

	var released []string
	c, err := cache.New(2, upper, cache.WithRelease(func(v string) error {
		released = append(released, v)
		return nil
	}))
	require.NoError(t, err)

	c.Get("a", nil)
	c.Get("b", nil)
	// exactly one release, with a's value, at the moment c is inserted
	c.Get("c", nil)

	assert.Equal(t, []string{"A"}, released)
	assert.Equal(t, 2, c.Len())

	_, ok := c.TryGet("a")
	assert.False(t, ok)
}

func TestTouchProtectsFromEviction(t *testing.T) {
	t.Parallel()

	var released []string
	c, err := cache.New(2, upper, cache.WithRelease(func(v string) error {
		released = append(released, v)
		return nil
	}))
	require.NoError(t, err)

	c.Get("a", nil)
	c.Get("b", nil)
	c.Get("a", nil) // promote a; b is now least recently used
	c.Get("c", nil)

	assert.Equal(t, []string{"B"}, released)

	_, ok := c.TryGet("a")
	assert.True(t, ok)
	_, ok = c.TryGet("b")
	assert.False(t, ok)
}

func TestInvariant_CountNeverExceedsBound(t *testing.T) {
	t.Parallel()

	c, err := cache.New(4, upper)
	require.NoError(t, err)

	keys := []string{"a", "b", "c", "d", "e", "f", "a", "c", "g"}
	for _, k := range keys {
		c.Get(k, nil)
		assert.LessOrEqual(t, c.Len(), 4)
		assert.Len(t, c.Values(), c.Len())
	}
}

func TestTryGet_MissDoesNotCompute(t *testing.T) {
	t.Parallel()

	calls := 0
	c, err := cache.New(2, func(k string, _ any) string {
		calls++
		return upper(k, nil)
	})
	require.NoError(t, err)

	_, ok := c.TryGet("a")
	assert.False(t, ok)
	assert.Zero(t, calls)

	c.Get("a", nil)
	v, ok := c.TryGet("a")
	require.True(t, ok)
	assert.Equal(t, "A", v)
	assert.Equal(t, 1, calls)
}

func TestInvalidate_ReleasesExactlyOnce(t *testing.T) {
	t.Parallel()

	var released []string
	c, err := cache.New(4, upper, cache.WithRelease(func(v string) error {
		released = append(released, v)
		return nil
	}))
	require.NoError(t, err)

	c.Get("a", nil)
	c.Get("b", nil)

	require.NoError(t, c.Invalidate("a"))
	assert.Equal(t, []string{"A"}, released)
	assert.Equal(t, 1, c.Len())

	// invalidating a missing key is a silent no-op
	require.NoError(t, c.Invalidate("a"))
	assert.Equal(t, []string{"A"}, released)
}

func TestInvalidate_SurfacesReleaseError(t *testing.T) {
	t.Parallel()

	failed := errors.New("release failed")
	c, err := cache.New(2, upper, cache.WithRelease(func(string) error { return failed }))
	require.NoError(t, err)

	c.Get("a", nil)
	require.ErrorIs(t, c.Invalidate("a"), failed)
	// the entry left the cache even though its release failed
	assert.Zero(t, c.Len())
}

func TestInvalidateAll_AggregateCollectsEveryError(t *testing.T) {
	t.Parallel()

	c, err := cache.New(4, upper, cache.WithRelease(func(v string) error {
		return errors.New("release " + v)
	}))
	require.NoError(t, err)

	c.Get("a", nil)
	c.Get("b", nil)

	err = c.InvalidateAll(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release A")
	assert.Contains(t, err.Error(), "release B")
	assert.Zero(t, c.Len())
}

func TestInvalidateAll_FailFastStopsAtFirstError(t *testing.T) {
	t.Parallel()

	releases := 0
	c, err := cache.New(4, upper, cache.WithRelease(func(v string) error {
		releases++
		return errors.New("release " + v)
	}))
	require.NoError(t, err)

	c.Get("a", nil)
	c.Get("b", nil)

	require.Error(t, c.InvalidateAll(false))
	assert.Equal(t, 1, releases)
	// the cache is already consistent regardless
	assert.Zero(t, c.Len())
}

func TestValues_MostRecentFirst(t *testing.T) {
	t.Parallel()

	c, err := cache.New(4, upper)
	require.NoError(t, err)

	c.Get("a", nil)
	c.Get("b", nil)
	c.Get("c", nil)
	c.Get("a", nil)

	assert.Equal(t, []string{"A", "C", "B"}, c.Values())
}

func TestGet_ConcurrentFillConvergesToOneValue(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	built := 0
	c, err := cache.New(2, func(k string, _ any) *int {
		mu.Lock()
		built++
		mu.Unlock()
		v := len(k)
		return &v
	})
	require.NoError(t, err)

	const goroutines = 32
	results := make([]*int, goroutines)

	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		i := i
		g.Go(func() error {
			results[i] = c.Get("key", nil)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// racing computations may happen, but exactly one result is retained and
	// the double-check hands every caller that same value
	assert.Equal(t, 1, c.Len())
	assert.GreaterOrEqual(t, built, 1)

	cached, ok := c.TryGet("key")
	require.True(t, ok)
	for _, got := range results {
		assert.Same(t, cached, got)
	}
}
