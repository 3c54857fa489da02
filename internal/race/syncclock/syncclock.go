// Package syncclock implements the chunked SyncClock that lives inside
// every sync object (mutex, atomic location, condvar slot, queue handle).
//
// Unlike the dense per-thread ThreadClock (internal/race/vectorclock), a
// SyncClock is usually sparse — most sync objects only ever see a handful
// of distinct threads across their lifetime — so it is represented as a
// growable list of fixed-size chunks obtained from internal/race/chunkalloc,
// re-expressing the intrusive Chunk* linked list from tsan_clock.h as a Go
// slice of chunk pointers addressed by an explicit (chunk index, slot index)
// pair instead of pointer arithmetic.
package syncclock

import "github.com/vektra-labs/racewatch/internal/race/chunkalloc"

// SyncClock is the sparse, chunk-backed clock attached to a sync object.
// The zero value is an empty clock (n == 0, no chunks) and is ready to use.
//
// SyncClock is not safe for concurrent use by itself — callers synchronize
// access through the owning SyncObject's spinmutex.RWMutex (component B).
type SyncClock struct {
	chunks []*chunkalloc.Chunk
	n      int // one past the highest tid ever set
}

// Size returns n, the logical length of the clock.
func (sc *SyncClock) Size() int {
	return sc.n
}

// Get returns the counter for tid, or 0 if tid has never been set
// (absent slots read as zero).
func (sc *SyncClock) Get(tid int) uint64 {
	chunkIdx, slotIdx := tid/chunkalloc.ChunkSize, tid%chunkalloc.ChunkSize
	if chunkIdx >= len(sc.chunks) || sc.chunks[chunkIdx] == nil {
		return 0
	}
	return sc.chunks[chunkIdx][slotIdx]
}

// ensureChunk grows the chunk slice and allocates the chunk holding tid if
// necessary, returning an error only on allocator exhaustion.
func (sc *SyncClock) ensureChunk(tid int, alloc *chunkalloc.Allocator) (*chunkalloc.Chunk, int, error) {
	chunkIdx, slotIdx := tid/chunkalloc.ChunkSize, tid%chunkalloc.ChunkSize
	for len(sc.chunks) <= chunkIdx {
		sc.chunks = append(sc.chunks, nil)
	}
	if sc.chunks[chunkIdx] == nil {
		c, err := alloc.AllocChunk()
		if err != nil {
			return nil, 0, err
		}
		sc.chunks[chunkIdx] = c
	}
	return sc.chunks[chunkIdx], slotIdx, nil
}

// Set stores v for tid, growing n and allocating chunks as needed.
// Callers (the clock-transfer module) are responsible for asserting
// monotonicity; Set itself performs the raw store.
func (sc *SyncClock) Set(tid int, v uint64, alloc *chunkalloc.Allocator) error {
	c, slot, err := sc.ensureChunk(tid, alloc)
	if err != nil {
		return err
	}
	c[slot] = v
	if sc.n <= tid {
		sc.n = tid + 1
	}
	return nil
}

// Free returns every chunk owned by this SyncClock to the allocator and
// resets the clock to empty. Called when the owning sync object is
// destroyed.
func (sc *SyncClock) Free(alloc *chunkalloc.Allocator) {
	for _, c := range sc.chunks {
		if c != nil {
			alloc.FreeChunk(c)
		}
	}
	sc.chunks = nil
	sc.n = 0
}

// ForEach calls fn(tid, value) for every tid in [0, n) whose chunk has been
// allocated and whose value is nonzero. Used by the clock-transfer module's
// acquire/release/acq_rel, which skip trailing-zero chunks.
func (sc *SyncClock) ForEach(fn func(tid int, v uint64)) {
	for chunkIdx, c := range sc.chunks {
		if c == nil {
			continue
		}
		base := chunkIdx * chunkalloc.ChunkSize
		for slot, v := range c {
			if v != 0 {
				fn(base+slot, v)
			}
		}
	}
}
