package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionedEntry_SnapshotIsCachedUntilMutation(t *testing.T) {
	t.Parallel()

	var e versionedEntry[int]
	e.add(constantOf(1))
	e.add(constantOf(2))

	s1 := e.snapshot()
	s2 := e.snapshot()
	require.Len(t, s1, 2)
	// steady-state reads return the same backing array, no copies
	assert.Same(t, &s1[0], &s2[0])

	e.add(constantOf(3))
	s3 := e.snapshot()
	require.Len(t, s3, 3)
	assert.NotSame(t, &s1[0], &s3[0])

	// the stale snapshot is untouched
	assert.Len(t, s1, 2)
}

func TestVersionedEntry_LastWinsAndOrder(t *testing.T) {
	t.Parallel()

	var e versionedEntry[string]
	_, ok := e.last()
	assert.False(t, ok)

	e.add(constantOf("a"))
	e.add(constantOf("b"))

	reg, ok := e.last()
	require.True(t, ok)
	assert.Equal(t, "b", reg.value())

	snap := e.snapshot()
	assert.Equal(t, "a", snap[0].value())
	assert.Equal(t, "b", snap[1].value())
}

func TestVersionedEntry_RemoveLastAndBecameEmpty(t *testing.T) {
	t.Parallel()

	var e versionedEntry[int]

	removed, empty := e.removeLast()
	assert.False(t, removed)
	assert.True(t, empty)

	e.add(constantOf(1))
	e.add(constantOf(2))

	removed, empty = e.removeLast()
	assert.True(t, removed)
	assert.False(t, empty)
	assert.Equal(t, 1, e.size())

	removed, empty = e.removeLast()
	assert.True(t, removed)
	assert.True(t, empty)

	// became-empty publishes an aligned empty snapshot: the next read is the
	// lock-free fast path and sees nothing
	assert.Empty(t, e.snapshot())
	assert.Zero(t, e.size())
}

func TestVersionedEntry_ClearPublishesEmptySnapshot(t *testing.T) {
	t.Parallel()

	var e versionedEntry[int]
	for i := 0; i < 5; i++ {
		e.add(constantOf(i))
	}
	e.clear()
	assert.Empty(t, e.snapshot())

	// the entry is reusable after a clear
	e.add(constantOf(7))
	reg, ok := e.last()
	require.True(t, ok)
	assert.Equal(t, 7, reg.value())
}

func TestContractContainer_PrunesEmptyEntries(t *testing.T) {
	t.Parallel()

	var c contractContainer[int]
	c.add("foo", constantOf(1))
	c.removeLast("foo")

	c.mu.RLock()
	_, ok := c.entries["foo"]
	c.mu.RUnlock()
	assert.False(t, ok)

	// recreated lazily on the next write
	c.add("foo", constantOf(2))
	regs := c.snapshotFor("foo")
	require.Len(t, regs, 1)
	assert.Equal(t, 2, regs[0].value())
}

func TestLazyCell_FailureIsSticky(t *testing.T) {
	t.Parallel()

	calls := 0
	cell := newLazyCell(func() int {
		calls++
		panic("ctor failed")
	})

	assert.PanicsWithValue(t, "ctor failed", func() { cell.get() })
	// the panic is replayed, the factory is not retried
	assert.PanicsWithValue(t, "ctor failed", func() { cell.get() })
	assert.Equal(t, 1, calls)

	_, ok := cell.peek()
	assert.False(t, ok)
}

func TestLazyCell_PeekDoesNotForce(t *testing.T) {
	t.Parallel()

	calls := 0
	cell := newLazyCell(func() int {
		calls++
		return 42
	})

	_, ok := cell.peek()
	assert.False(t, ok)
	assert.Zero(t, calls)

	assert.Equal(t, 42, cell.get())
	v, ok := cell.peek()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}
