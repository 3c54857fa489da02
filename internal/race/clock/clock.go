// Package clock implements the clock algebra (component A): the narrow
// "clock transfer" module connecting the dense per-thread ThreadClock
// (internal/race/vectorclock) and the chunked per-object SyncClock
// (internal/race/syncclock).
//
// tsan_clock.h expresses acquire/release/acq_rel as methods on ThreadClock
// that reach directly into SyncClock's private Chunk list via a C++ friend
// declaration. This package replaces that reciprocal-knowledge relationship
// with free functions that take both clocks as parameters — neither clock
// type knows about the other.
package clock

import (
	"github.com/vektra-labs/racewatch/internal/race/chunkalloc"
	"github.com/vektra-labs/racewatch/internal/race/raceassert"
	"github.com/vektra-labs/racewatch/internal/race/syncclock"
	"github.com/vektra-labs/racewatch/internal/race/vectorclock"
)

// Tick pre-increments tid's own slot in tc. Must be invoked immediately
// before any release operation by tid so that downstream acquirers observe
// a fresh epoch.
func Tick(tc *vectorclock.VectorClock, tid uint16) {
	tc.Increment(tid)
}

// Set stores v in tc[tid]. Callers must ensure v >= tc[tid]; racedebug
// builds check this.
func Set(tc *vectorclock.VectorClock, tid uint16, v uint32) {
	raceassert.Check(v >= tc.Get(tid), "clock.Set: v regresses tc[tid]")
	tc.Set(tid, v)
}

// Acquire performs tc[i] <- max(tc[i], sc[i]) for every slot sc has
// allocated. If sc is empty (no chunks), Acquire is a no-op.
//
// This is the "acquiring thread inherits the knowledge accumulated at the
// sync object" rule: call after a Lock, AtomicAcquire, channel receive, or
// thread join succeeds.
func Acquire(tc *vectorclock.VectorClock, sc *syncclock.SyncClock) {
	sc.ForEach(func(tid int, v uint64) {
		//nolint:gosec // G115: tid is bounded by vectorclock.MaxThreads by construction.
		t := uint16(tid)
		cur := uint64(tc.Get(t))
		if v > cur {
			//nolint:gosec // G115: clamped representation; SyncClock values never exceed uint32 range in practice.
			tc.Set(t, uint32(v))
		}
	})
}

// Release performs sc[i] <- max(sc[i], tc[i]) for every slot tc has
// populated, allocating chunks in sc as needed via alloc. Returns an error
// only on allocator exhaustion (spec error class 3).
//
// Call immediately after Tick, before an Unlock, AtomicRelease, channel
// send, or thread-create publishes its clock.
func Release(tc *vectorclock.VectorClock, sc *syncclock.SyncClock, alloc *chunkalloc.Allocator) error {
	for tid := 0; tid < vectorclock.MaxThreads; tid++ {
		//nolint:gosec // G115: n is bounded by vectorclock.MaxThreads.
		v := tc.Get(uint16(tid))
		if v == 0 && sc.Get(tid) == 0 {
			continue // skip trailing/interior zero slots neither side has touched
		}
		if uint64(v) > sc.Get(tid) {
			if err := sc.Set(tid, uint64(v), alloc); err != nil {
				return err
			}
		}
	}
	return nil
}

// AcqRel performs Release followed by Acquire against a single observed
// snapshot of sc, as required for read-modify-write atomics and for
// mutex-unlock-then-lock performed by different threads on the same object.
func AcqRel(tc *vectorclock.VectorClock, sc *syncclock.SyncClock, alloc *chunkalloc.Allocator) error {
	if err := Release(tc, sc, alloc); err != nil {
		return err
	}
	Acquire(tc, sc)
	return nil
}
