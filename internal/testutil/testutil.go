// Package testutil provides common testing utilities shared by the
// dispatcher, scratch and render tests.
//
// It consolidates two patterns:
//   - leak-checked Arrow allocators released at test end
//   - a recording Task that counts executions per index and cleanups
package testutil

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
)

// TestMemoryContext provides a checked allocator that fails the test when
// memory is still outstanding at Release.
type TestMemoryContext struct {
	Allocator *memory.CheckedAllocator
	tb        testing.TB
}

// Release asserts that every allocation has been freed.
func (tmc *TestMemoryContext) Release() {
	tmc.Allocator.AssertSize(tmc.tb, 0)
}

// SetupMemoryTest creates a checked allocator for tests.
//
// Example usage:
//
//	mem := testutil.SetupMemoryTest(t)
//	defer mem.Release()
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewCheckedAllocator(memory.NewGoAllocator()),
		tb:        tb,
	}
}

// RecordingTask is a Task that records what the dispatcher did with it.
// It is safe for concurrent use.
type RecordingTask struct {
	hits     []atomic.Int32
	calls    atomic.Int64
	cleanups atomic.Int32

	mu    sync.Mutex
	order []int

	// ExecuteHook, when set, runs after the index is recorded and its
	// result is returned from Execute.
	ExecuteHook func(index int) error
	// CleanupHook, when set, runs after the cleanup is recorded.
	CleanupHook func()
}

// NewRecordingTask creates a recorder for indices in [0, size).
func NewRecordingTask(size int) *RecordingTask {
	return &RecordingTask{hits: make([]atomic.Int32, size)}
}

// Execute records index.
func (r *RecordingTask) Execute(index int) error {
	r.hits[index].Add(1)
	r.calls.Add(1)

	r.mu.Lock()
	r.order = append(r.order, index)
	r.mu.Unlock()

	if r.ExecuteHook != nil {
		return r.ExecuteHook(index)
	}
	return nil
}

// Cleanup records a cleanup call.
func (r *RecordingTask) Cleanup() {
	r.cleanups.Add(1)
	if r.CleanupHook != nil {
		r.CleanupHook()
	}
}

// Hits returns how often index was executed.
func (r *RecordingTask) Hits(index int) int {
	return int(r.hits[index].Load())
}

// Calls returns the total number of Execute calls.
func (r *RecordingTask) Calls() int64 {
	return r.calls.Load()
}

// Cleanups returns the number of Cleanup calls.
func (r *RecordingTask) Cleanups() int {
	return int(r.cleanups.Load())
}

// Order returns the indices in the order Execute recorded them.
func (r *RecordingTask) Order() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}

// AssertEachHit checks that every index in [0, count) was executed exactly
// times times and that no index at or beyond count was executed at all.
func (r *RecordingTask) AssertEachHit(tb testing.TB, count, times int) bool {
	tb.Helper()
	ok := true
	for i := range r.hits {
		want := times
		if i >= count {
			want = 0
		}
		if got := r.Hits(i); got != want {
			ok = assert.Equal(tb, want, got, "index %d", i) && ok
		}
	}
	return ok
}
