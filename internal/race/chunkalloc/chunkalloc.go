// Package chunkalloc provides the chunked allocator façade (component C):
// fixed-size, zero-initialized chunks used to back SyncClock storage.
//
// The façade is backed by a sync.Pool free list, the same reuse idiom the
// teacher's own test suite already exercises for pooled allocations. A pool
// hit is wait-free in the common case; a pool miss falls back to a plain
// heap allocation. Exhaustion is modeled as an optional hard cap on the
// number of chunks concurrently on loan, so that the fatal resource
// exhaustion path (spec error class 3) is exercisable in tests without
// needing to actually exhaust host memory.
package chunkalloc

import (
	"sync"
	"sync/atomic"
)

// ChunkSize is the number of uint64 slots per chunk, matching
// tsan_clock.h's kChunkSize.
const ChunkSize = 128

// Chunk is a fixed-size, zero-initialized block of clock slots.
type Chunk [ChunkSize]uint64

// ExhaustedError is returned by AllocChunk when the allocator's configured
// live-chunk cap has been reached.
type ExhaustedError struct {
	Cap int64
}

func (e *ExhaustedError) Error() string {
	return "chunkalloc: exhausted (cap reached)"
}

// Allocator is a thread-safe pool of fixed-size chunks.
//
// The zero value has no cap (unbounded) and is ready to use; use NewAllocator
// to set a cap for testing resource-exhaustion handling.
type Allocator struct {
	pool    sync.Pool
	live    atomic.Int64
	cap     int64 // 0 means unbounded
	allocs  atomic.Uint64
	frees   atomic.Uint64
}

// NewAllocator creates an Allocator. A cap of 0 means unbounded.
func NewAllocator(cap int64) *Allocator {
	a := &Allocator{cap: cap}
	a.pool.New = func() any {
		return new(Chunk)
	}
	return a
}

// AllocChunk returns a zero-initialized chunk. Thread-safe; amortized O(1).
//
// Returns ExhaustedError if the allocator has a configured cap and it has
// been reached — this is the allocator-exhaustion condition spec error
// class 3 treats as fatal; callers at the process boundary should abort
// after flushing statistics.
func (a *Allocator) AllocChunk() (*Chunk, error) {
	if a.cap > 0 {
		n := a.live.Add(1)
		if n > a.cap {
			a.live.Add(-1)
			return nil, &ExhaustedError{Cap: a.cap}
		}
	} else {
		a.live.Add(1)
	}
	a.allocs.Add(1)
	c := a.pool.Get().(*Chunk)
	*c = Chunk{}
	return c, nil
}

// FreeChunk returns a chunk to the pool. Freeing a chunk never invalidates
// any other chunk; callers must not retain references to c afterward.
func (a *Allocator) FreeChunk(c *Chunk) {
	if c == nil {
		return
	}
	a.live.Add(-1)
	a.frees.Add(1)
	a.pool.Put(c)
}

// LiveChunks returns the number of chunks currently on loan.
func (a *Allocator) LiveChunks() int64 {
	return a.live.Load()
}

// Stats returns cumulative allocation/free counts for monitoring.
func (a *Allocator) Stats() (allocs, frees uint64) {
	return a.allocs.Load(), a.frees.Load()
}
