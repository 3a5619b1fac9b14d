package scratch

import (
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorPool(t *testing.T) {
	t.Run("basic pool operations", func(t *testing.T) {
		pool := NewAllocatorPool(2)

		alloc1 := pool.Get()
		require.NotNil(t, alloc1)
		alloc2 := pool.Get()
		require.NotNil(t, alloc2)
		assert.Equal(t, int64(2), pool.ActiveCount())

		pool.Put(alloc1)
		pool.Put(alloc2)
		assert.Equal(t, int64(0), pool.ActiveCount())

		// sync.Pool may or may not hand back the same allocator
		alloc3 := pool.Get()
		require.NotNil(t, alloc3)
		pool.Put(alloc3)
	})

	t.Run("default size follows CPU count", func(t *testing.T) {
		pool := NewAllocatorPool(0)
		assert.Positive(t, pool.GetStats().MaxSize)
	})

	t.Run("closed pool hands out nothing", func(t *testing.T) {
		pool := NewAllocatorPool(2)
		pool.Close()

		assert.Nil(t, pool.Get())
	})

	t.Run("concurrent access safety", func(t *testing.T) {
		pool := NewAllocatorPool(4)
		const numGoroutines = 10
		const operationsPerGoroutine = 50

		var wg sync.WaitGroup
		for range numGoroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range operationsPerGoroutine {
					alloc := pool.Get()
					buf := alloc.Allocate(64)
					alloc.Free(buf)
					pool.Put(alloc)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(0), pool.ActiveCount())
	})
}

func TestBudget(t *testing.T) {
	t.Run("enforces limit", func(t *testing.T) {
		b := NewBudget(100)

		assert.True(t, b.CanAllocate(60))
		assert.True(t, b.TryAllocate(60))
		assert.False(t, b.CanAllocate(50))
		assert.False(t, b.TryAllocate(50))
		assert.Equal(t, int64(60), b.CurrentUsage())

		b.RecordDeallocation(60)
		assert.True(t, b.TryAllocate(100))
	})

	t.Run("non-positive limit is unlimited", func(t *testing.T) {
		b := NewBudget(0)

		assert.True(t, b.CanAllocate(1<<40))
		assert.True(t, b.TryAllocate(1<<40))
	})
}

func TestArena(t *testing.T) {
	t.Run("allocations are freed on release", func(t *testing.T) {
		checked := memory.NewCheckedAllocator(memory.NewGoAllocator())
		defer checked.AssertSize(t, 0)

		pool := NewAllocatorPool(1, WithAllocator(checked))
		arena := NewArena(pool, 3)
		assert.Equal(t, 3, arena.Worker())

		buf, err := arena.Bytes(128)
		require.NoError(t, err)
		assert.Len(t, buf, 128)

		floats, err := arena.Float64s(16)
		require.NoError(t, err)
		assert.Len(t, floats, 16)
		floats[15] = 2.5
		assert.InDelta(t, 2.5, floats[15], 0)

		assert.Equal(t, int64(128+16*8), arena.Outstanding())
		assert.Equal(t, int64(128+16*8), pool.TotalAllocated())

		arena.Release()
		assert.Equal(t, int64(0), pool.TotalAllocated())
		assert.Equal(t, int64(128+16*8), pool.PeakAllocated())
		assert.Equal(t, int64(0), pool.ActiveCount())
	})

	t.Run("reset keeps the arena usable", func(t *testing.T) {
		checked := memory.NewCheckedAllocator(memory.NewGoAllocator())
		defer checked.AssertSize(t, 0)

		pool := NewAllocatorPool(1, WithAllocator(checked))
		arena := NewArena(pool, 0)
		defer arena.Release()

		for range 5 {
			_, err := arena.Bytes(256)
			require.NoError(t, err)
			arena.Reset()
			assert.Equal(t, int64(0), arena.Outstanding())
		}
		assert.Equal(t, int64(256), pool.PeakAllocated())
	})

	t.Run("release is idempotent", func(t *testing.T) {
		pool := NewAllocatorPool(1)
		arena := NewArena(pool, 0)

		arena.Release()
		arena.Release()

		_, err := arena.Bytes(8)
		require.ErrorIs(t, err, ErrReleased)
		assert.Equal(t, int64(0), pool.ActiveCount())
	})

	t.Run("arena from closed pool", func(t *testing.T) {
		pool := NewAllocatorPool(1)
		pool.Close()

		arena := NewArena(pool, 0)
		_, err := arena.Bytes(8)
		require.ErrorIs(t, err, ErrReleased)
		arena.Release()
	})

	t.Run("budget exceeded", func(t *testing.T) {
		checked := memory.NewCheckedAllocator(memory.NewGoAllocator())
		defer checked.AssertSize(t, 0)

		pool := NewAllocatorPool(2, WithAllocator(checked), WithBudget(100))
		a := NewArena(pool, 0)
		b := NewArena(pool, 1)
		defer a.Release()
		defer b.Release()

		_, err := a.Bytes(80)
		require.NoError(t, err)

		_, err = b.Bytes(40)
		require.ErrorIs(t, err, ErrBudgetExceeded)
		assert.Contains(t, err.Error(), "40 bytes requested")

		a.Reset()
		_, err = b.Bytes(40)
		require.NoError(t, err)
	})
}

func BenchmarkArena(b *testing.B) {
	pool := NewAllocatorPool(1)
	arena := NewArena(pool, 0)
	defer arena.Release()

	b.ResetTimer()
	for range b.N {
		if _, err := arena.Float64s(512); err != nil {
			b.Fatal(err)
		}
		arena.Reset()
	}
}
