package goroutine

import (
	"github.com/vektra-labs/racewatch/internal/race/epoch"
	"github.com/vektra-labs/racewatch/internal/race/vectorclock"
)

// RaceContext represents the race detection state for a single goroutine.
//
// Each goroutine has its own RaceContext tracking logical time and happens-before
// relationships. The context maintains both a full vector clock (C) and a cached
// epoch (Epoch) for the current thread.
//
// The epoch cache enables FastTrack's critical optimization: most operations
// (96%+) only need the epoch value, avoiding expensive vector clock operations.
//
// Layout:
//   - TID: Thread/Goroutine ID (0-65535, uint16)
//   - C: Full vector clock [256]uint32 (vectorclock.MaxThreads) tracking all threads
//   - Epoch: Cached value of C[TID] as compact 32-bit epoch
//
// Invariant: Epoch must ALWAYS equal epoch.NewEpoch(uint8(TID), C[TID]).
// This invariant is maintained by IncrementClock(), which updates both.
//
// Epoch only encodes the low 8 bits of TID (see internal/race/epoch) and C
// has vectorclock.MaxThreads (256) slots, so both address only TIDs 0-255,
// the range the TID pool in internal/race/api hands out.
type RaceContext struct {
	// TID is the thread/goroutine identifier (0-65535).
	// 16-bit uint for production (65,536 concurrent goroutines max).
	TID uint16

	// C is the full vector clock tracking logical time for all threads.
	// C[i] represents the logical time for thread i.
	// This is used for happens-before checks when epoch fast-path fails.
	C *vectorclock.VectorClock

	// Epoch is the cached epoch for this goroutine: Epoch == C[TID].
	// This enables O(1) access to the current logical time without
	// accessing the full vector clock array.
	//
	// CRITICAL: This field is on the hot path for every memory access!
	// Must be kept in sync with C[TID] at all times.
	Epoch epoch.Epoch
}

// Alloc creates and initializes a new RaceContext for the given thread ID.
//
// The context is initialized with:
//   - TID set to the provided tid
//   - C initialized as a zero vector clock, except C[tid] which starts at 1
//   - Epoch set to epoch.NewEpoch(tid, 1) (TID@1)
//
// Clock value 0 is reserved as bottom (⊥): it means "no access by this
// thread has ever been observed". Starting a thread's own slot at 1
// instead of 0 keeps that reservation true for every live thread, so a
// fresh thread's very first recorded access can still race with another
// thread that has never synchronized with it - if TID@0 were a valid
// first epoch, the happens-before test tc.Get(prevTID) >= prevClock would
// be vacuously true (x >= 0) against it, hiding the race.
//
// Example:
//
//	ctx := Alloc(5)
//	// ctx.TID = 5
//	// ctx.C = {0:0, 1:0, ..., 5:1, ..., 255:0}
//	// ctx.Epoch = 1@5 (clock=1, tid=5)
func Alloc(tid uint16) *RaceContext {
	ctx := &RaceContext{
		TID: tid,
		C:   vectorclock.New(),
	}
	ctx.C.Set(tid, 1)
	// Initialize epoch cache to TID@1 (clock 1 for new goroutine); see the
	// epoch-zero-as-bottom note above.
	//nolint:gosec // G115: epoch's fast path addresses only the low 8 bits of tid; see MaxTid note below.
	ctx.Epoch = epoch.NewEpoch(uint8(tid), 1)
	return ctx
}

// IncrementClock advances the logical clock for this goroutine.
//
// This is called on every memory access by this goroutine to represent
// forward progress in logical time. It performs two updates:
//  1. Increments C[TID] in the vector clock
//  2. Updates the cached Epoch to reflect the new C[TID] value
//
// The updates are performed sequentially to maintain the invariant:
//
//	Epoch == epoch.NewEpoch(TID, C[TID])
//
// Performance: Target <200ns/op (VectorClock.Increment + Epoch creation).
// This is on the hot path - called millions of times during execution.
//
// Example:
//
//	ctx := Alloc(5)
//	// ctx.C[5] = 1, ctx.Epoch = 1@5
//	ctx.IncrementClock()
//	// ctx.C[5] = 2, ctx.Epoch = 2@5
//	ctx.IncrementClock()
//	// ctx.C[5] = 3, ctx.Epoch = 3@5
func (rc *RaceContext) IncrementClock() {
	// Step 1: Increment the vector clock for this thread.
	rc.C.Increment(rc.TID)

	// Step 2: Update the cached epoch to match C[TID].
	// This maintains the invariant: Epoch == epoch.NewEpoch(TID, C[TID]).
	//nolint:gosec // G115: epoch's fast path addresses only the low 8 bits of tid; see MaxTid note below.
	rc.Epoch = epoch.NewEpoch(uint8(rc.TID), rc.C.Get(rc.TID))
}

// GetEpoch returns the cached epoch for this goroutine.
//
// This is the CRITICAL HOT PATH operation - called on every memory access
// for race detection. It must be:
//   - O(1): Just a field access, no computation
//   - Zero allocations
//   - Inline-candidate (no function call overhead)
//   - //go:nosplit to prevent stack growth
//
// The cached epoch represents the current logical time for this goroutine
// as a compact 32-bit value (TID in top 8 bits, clock in bottom 24 bits).
//
// Performance: Target <1ns/op (single field read).
//
// Example:
//
//	ctx := Alloc(5)
//	e := ctx.GetEpoch()  // Returns 1@5 (clock=1, tid=5)
//	ctx.IncrementClock()
//	e = ctx.GetEpoch()   // Returns 2@5 (clock=2, tid=5)
//
//go:nosplit
func (rc *RaceContext) GetEpoch() epoch.Epoch {
	return rc.Epoch
}
