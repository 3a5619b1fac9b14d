// Package scratch provides per-worker scratch memory backed by Arrow allocators.
//
// A dispatcher worker owns one Arena for its lifetime. Buffers handed out by
// the arena are reused across indices and rounds, and are returned to the
// shared AllocatorPool when the worker's task is cleaned up.
package scratch

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrBudgetExceeded is returned when an arena allocation would push the pool
// over its memory budget.
var ErrBudgetExceeded = errors.New("scratch memory budget exceeded")

// ErrReleased is returned when allocating from a released arena or closed pool.
var ErrReleased = errors.New("scratch arena released")

// AllocatorPool manages a pool of memory allocators shared by worker arenas
type AllocatorPool struct {
	pool           sync.Pool
	active         int64 // Number of allocators currently in use
	maxSize        int   // Advisory upper bound on concurrently active allocators
	released       bool  // Flag to track if pool has been closed
	mu             sync.RWMutex
	totalAllocated int64 // Bytes currently allocated through the pool
	peakAllocated  int64 // Peak bytes allocated through the pool
	budget         *Budget
}

// Option configures an AllocatorPool.
type Option func(*AllocatorPool)

// WithAllocator makes every arena draw from base instead of a fresh Go
// allocator. Tests pass a memory.CheckedAllocator here to assert that all
// scratch memory is freed after teardown.
func WithAllocator(base memory.Allocator) Option {
	return func(p *AllocatorPool) {
		p.pool.New = func() any { return base }
	}
}

// WithBudget caps the bytes that may be outstanding across all arenas.
func WithBudget(limit int64) Option {
	return func(p *AllocatorPool) {
		p.budget = NewBudget(limit)
	}
}

// NewAllocatorPool creates a new allocator pool with the specified maximum size
func NewAllocatorPool(maxSize int, opts ...Option) *AllocatorPool {
	if maxSize <= 0 {
		maxSize = runtime.NumCPU()
	}

	p := &AllocatorPool{
		pool: sync.Pool{
			New: func() any {
				return memory.NewGoAllocator()
			},
		},
		maxSize: maxSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get retrieves an allocator from the pool, or nil once the pool is closed.
func (p *AllocatorPool) Get() memory.Allocator {
	p.mu.RLock()
	if p.released {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	atomic.AddInt64(&p.active, 1)
	alloc, ok := p.pool.Get().(memory.Allocator)
	if !ok {
		return memory.NewGoAllocator()
	}
	return alloc
}

// Put returns an allocator to the pool for reuse
func (p *AllocatorPool) Put(alloc memory.Allocator) {
	if alloc == nil {
		return
	}

	atomic.AddInt64(&p.active, -1)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.released {
		return
	}
	p.pool.Put(alloc)
}

// ActiveCount returns the number of allocators currently in use
func (p *AllocatorPool) ActiveCount() int64 {
	return atomic.LoadInt64(&p.active)
}

// Close shuts down the allocator pool
func (p *AllocatorPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
}

// reserve accounts for size bytes against the budget and the pool totals.
func (p *AllocatorPool) reserve(size int64) error {
	if p.budget != nil && !p.budget.TryAllocate(size) {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			ErrBudgetExceeded, size, p.budget.CurrentUsage(), p.budget.Limit())
	}

	newTotal := atomic.AddInt64(&p.totalAllocated, size)
	for {
		peak := atomic.LoadInt64(&p.peakAllocated)
		if newTotal <= peak || atomic.CompareAndSwapInt64(&p.peakAllocated, peak, newTotal) {
			break
		}
	}
	return nil
}

// unreserve returns size bytes to the budget and the pool totals.
func (p *AllocatorPool) unreserve(size int64) {
	if p.budget != nil {
		p.budget.RecordDeallocation(size)
	}
	atomic.AddInt64(&p.totalAllocated, -size)
}

// TotalAllocated returns the bytes currently allocated through the pool
func (p *AllocatorPool) TotalAllocated() int64 {
	return atomic.LoadInt64(&p.totalAllocated)
}

// PeakAllocated returns the peak bytes allocated through the pool
func (p *AllocatorPool) PeakAllocated() int64 {
	return atomic.LoadInt64(&p.peakAllocated)
}

// PoolStats provides statistics about the allocator pool
type PoolStats struct {
	ActiveAllocators int64
	TotalAllocated   int64
	PeakAllocated    int64
	MaxSize          int
}

// GetStats returns current pool statistics
func (p *AllocatorPool) GetStats() PoolStats {
	return PoolStats{
		ActiveAllocators: atomic.LoadInt64(&p.active),
		TotalAllocated:   atomic.LoadInt64(&p.totalAllocated),
		PeakAllocated:    atomic.LoadInt64(&p.peakAllocated),
		MaxSize:          p.maxSize,
	}
}

// Budget tracks outstanding scratch bytes against a fixed limit
type Budget struct {
	limit        int64
	currentUsage int64 // atomic
}

// NewBudget creates a budget of limit bytes. A non-positive limit is unlimited.
func NewBudget(limit int64) *Budget {
	return &Budget{limit: limit}
}

// Limit returns the configured limit.
func (b *Budget) Limit() int64 {
	return b.limit
}

// CanAllocate checks if size more bytes fit under the limit
func (b *Budget) CanAllocate(size int64) bool {
	if b.limit <= 0 {
		return true
	}
	return atomic.LoadInt64(&b.currentUsage)+size <= b.limit
}

// TryAllocate records size bytes if they fit and reports whether they did.
func (b *Budget) TryAllocate(size int64) bool {
	for {
		current := atomic.LoadInt64(&b.currentUsage)
		if b.limit > 0 && current+size > b.limit {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.currentUsage, current, current+size) {
			return true
		}
	}
}

// RecordDeallocation records a memory deallocation
func (b *Budget) RecordDeallocation(size int64) {
	atomic.AddInt64(&b.currentUsage, -size)
}

// CurrentUsage returns the current memory usage
func (b *Budget) CurrentUsage() int64 {
	return atomic.LoadInt64(&b.currentUsage)
}

// Arena is a single worker's scratch space. It is not safe for concurrent
// use; each dispatcher worker owns exactly one.
type Arena struct {
	pool      *AllocatorPool
	allocator memory.Allocator
	worker    int
	buffers   [][]byte
	released  bool
}

// NewArena creates an arena for worker drawing from pool
func NewArena(pool *AllocatorPool, worker int) *Arena {
	return &Arena{
		pool:      pool,
		allocator: pool.Get(),
		worker:    worker,
	}
}

// Worker returns the worker index this arena belongs to
func (a *Arena) Worker() int {
	return a.worker
}

// Bytes returns a zeroed buffer of n bytes owned by the arena until Reset or Release.
func (a *Arena) Bytes(n int) ([]byte, error) {
	if a.released || a.allocator == nil {
		return nil, ErrReleased
	}
	if err := a.pool.reserve(int64(n)); err != nil {
		return nil, err
	}
	buf := a.allocator.Allocate(n)
	a.buffers = append(a.buffers, buf)
	return buf, nil
}

// Float64s returns a zeroed float64 slice of length n backed by arena memory.
func (a *Arena) Float64s(n int) ([]float64, error) {
	buf, err := a.Bytes(n * arrow.Float64SizeBytes)
	if err != nil {
		return nil, err
	}
	return arrow.Float64Traits.CastFromBytes(buf), nil
}

// Outstanding returns the bytes currently held by the arena
func (a *Arena) Outstanding() int64 {
	var total int64
	for _, buf := range a.buffers {
		total += int64(len(buf))
	}
	return total
}

// Reset frees every buffer but keeps the allocator for further use.
func (a *Arena) Reset() {
	for _, buf := range a.buffers {
		a.allocator.Free(buf)
		a.pool.unreserve(int64(len(buf)))
	}
	a.buffers = a.buffers[:0]
}

// Release frees every buffer and returns the allocator to the pool.
// Calling Release more than once is a no-op.
func (a *Arena) Release() {
	if a.released {
		return
	}
	if a.allocator != nil {
		a.Reset()
		a.pool.Put(a.allocator)
		a.allocator = nil
	}
	a.released = true
}
