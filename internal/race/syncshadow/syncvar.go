package syncshadow

import (
	clockpkg "github.com/vektra-labs/racewatch/internal/race/clock"
	"github.com/vektra-labs/racewatch/internal/race/chunkalloc"
	"github.com/vektra-labs/racewatch/internal/race/spinmutex"
	"github.com/vektra-labs/racewatch/internal/race/syncclock"
	"github.com/vektra-labs/racewatch/internal/race/vectorclock"
)

// WaitGroupState tracks happens-before relationships for a sync.WaitGroup.
//
// WaitGroup creates happens-before edges for goroutine lifecycle synchronization.
// The Go memory model guarantees:
//   - WaitGroup.Done() happens-before the corresponding WaitGroup.Wait() returns
//   - Multiple goroutines can call Done(), creating a synchronization point
//   - Wait() blocks until all goroutines have called Done()
//
// Implementation:
//   - doneClock: Accumulates vector clocks from all Done() calls
//   - counter: Tracks Add/Done balance (for optional validation)
//
// Layout:
//   - doneClock: VectorClock accumulating all Done() operations
//   - counter: int32 tracking current wait count (optional, for debugging)
//
// Operations:
//   - OnAdd(delta): Increment counter by delta
//   - OnDone(): Merge current thread's clock into doneClock, decrement counter
//   - OnWaitBefore(): Prepare for wait (optional validation)
//   - OnWaitAfter(): Merge accumulated doneClock into waiter's clock
//
// Memory:
//   - Size: ~1KB (1 VectorClock) + 4 bytes (counter)
//   - Allocated lazily on first WaitGroup operation
//
// Lifecycle:
//   - Created on first WaitGroup operation (Add/Done/Wait)
//   - Never freed (WaitGroups typically live for program lifetime or are GC'd)
//
// Example (parent-child synchronization):
//
//	var wg sync.WaitGroup
//	var data int
//
//	// Parent goroutine
//	wg.Add(1)          // OnAdd increments counter to 1
//	go func() {
//	    data = 42      // Child writes
//	    wg.Done()      // OnDone: merge child's clock into doneClock
//	}()
//
//	wg.Wait()          // OnWaitAfter: merge doneClock into parent's clock
//	_ = data           // Parent reads (happens-after child write)
type WaitGroupState struct {
	// doneClock accumulates vector clocks from all Done() calls.
	// nil means no Done() has been called yet.
	//
	// On Done(), the thread's clock is merged into doneClock.
	// On Wait(), the waiter merges doneClock into its own clock.
	doneClock *vectorclock.VectorClock

	// counter tracks the current wait count (Add minus Done).
	// Used for optional validation to detect misuse patterns.
	//
	// - Add(delta): counter += delta
	// - Done(): counter -= 1
	// - Wait(): blocks until counter == 0
	//
	// This is primarily for debugging and validation, not required for
	// correctness of happens-before tracking.
	counter int32
}

// ChannelState tracks happens-before relationships for a channel.
//
// Channels create bidirectional happens-before edges between send and receive operations.
// The Go memory model guarantees:
//   - Unbuffered channel: Send synchronizes-with Receive (bidirectional)
//   - Buffered channel: kth Receive happens-before (k+C)th Send completes
//   - Channel close: close(ch) happens-before all receives that observe closure
//
// For MVP (Task 4.2), we treat all channels as unbuffered for simplicity.
// This is conservative - it won't produce false negatives (missed races),
// but may be slightly less permissive than the full memory model.
//
// Layout:
//   - sendClock: VectorClock from the last send operation
//   - recvClock: VectorClock from the last receive operation
//   - closeClock: VectorClock from channel close (nil if not closed)
//   - isClosed: Flag indicating if channel is closed
//
// Operations:
//   - OnSendAfter: Captures sender's clock (sendClock := sender.C)
//   - OnRecvAfter: Merges sender's clock into receiver (recv.C.Join(sendClock))
//   - OnClose: Captures close clock, sets isClosed flag
//
// Memory:
//   - Size: ~3KB (3 VectorClocks x 1KB each) + 1 byte flag
//   - Allocated lazily on first channel operation
//
// Lifecycle:
//   - Created on first channel operation (send/recv/close)
//   - Never freed (channels typically live for program lifetime or are GC'd)
//
// Example (unbuffered channel):
//
//	// Goroutine 1 (sender)
//	ch <- value         // OnSendAfter captures sender's clock
//
//	// Goroutine 2 (receiver)
//	<-ch                // OnRecvAfter merges sender's clock into receiver
//	// Receiver now happens-after sender
type ChannelState struct {
	// sendClock is the vector clock from the last send operation.
	// nil means no send has occurred yet (uninitialized channel).
	//
	// On Send, the sender's clock is captured into sendClock.
	// On Receive, the receiver merges sendClock into its own clock.
	sendClock *vectorclock.VectorClock

	// recvClock is the vector clock from the last receive operation.
	// nil means no receive has occurred yet.
	//
	// For bidirectional synchronization (unbuffered channels), recvClock
	// can be merged back into sender's clock if needed.
	// MVP: Not used for now, reserved for future bidirectional sync.
	recvClock *vectorclock.VectorClock

	// closeClock is the vector clock when the channel was closed.
	// nil means channel is not closed yet.
	//
	// On Close, the closer's clock is captured into closeClock.
	// All subsequent receives will merge closeClock (happens-before closure).
	closeClock *vectorclock.VectorClock

	// isClosed indicates if the channel has been closed.
	// true means close(ch) was called.
	//
	// After close, receives are allowed (until channel is drained),
	// but sends will panic. We track this for correctness.
	isClosed bool
}

// LockState is the sync-object state machine's current state (spec §4.E):
// Unlocked, WriteHeld(owner, recursion count), or ReadHeld(reader count).
type LockState uint8

const (
	Unlocked  LockState = iota
	WriteHeld           // owner/recCount fields are meaningful
	ReadHeld             // readers field is meaningful
)

func (s LockState) String() string {
	switch s {
	case Unlocked:
		return "Unlocked"
	case WriteHeld:
		return "WriteHeld"
	case ReadHeld:
		return "ReadHeld"
	default:
		return "Invalid"
	}
}

// AnomalyKind enumerates the tool-anomaly diagnostics the lock state machine
// can surface (spec error class 2: log and continue, never abort).
type AnomalyKind uint8

const (
	AnomalyNone AnomalyKind = iota
	AnomalyDoubleLock
	AnomalyLockInversion
	AnomalyUnlockNotHeld
	AnomalyMutexDestroyLocked
)

func (k AnomalyKind) String() string {
	switch k {
	case AnomalyDoubleLock:
		return "double-lock"
	case AnomalyLockInversion:
		return "lock-inversion"
	case AnomalyUnlockNotHeld:
		return "unlock-not-held"
	case AnomalyMutexDestroyLocked:
		return "mutex-destroy-locked"
	default:
		return "none"
	}
}

// SyncVar tracks happens-before relationships and lock-state for one
// synchronization primitive (mutex, rwmutex, atomic location, channel, or
// WaitGroup all share this type, distinguished by which of clock/channel/
// waitGroup are in use).
//
// clock is the object's SyncClock (component A data, chunk-backed per
// component C) — the "Lm" in spec §4.A's algebra. mu is the object's own
// spin-mutex (component B), guarding the fields below exactly as spec §4.E
// and §5 require ("All state-machine transitions... acquire the object's
// mutex").
type SyncVar struct {
	mu spinmutex.RWMutex

	clock *syncclock.SyncClock

	state    LockState
	ownerTID uint16
	recCount uint32
	readers  uint32

	// channel tracks happens-before relationships for channel operations.
	// nil means this SyncVar is not used for a channel (it's a mutex/rwmutex).
	channel *ChannelState

	// waitGroup tracks happens-before relationships for WaitGroup operations.
	// nil means this SyncVar is not used for a WaitGroup.
	waitGroup *WaitGroupState
}

func (sv *SyncVar) ensureClock() *syncclock.SyncClock {
	if sv.clock == nil {
		sv.clock = &syncclock.SyncClock{}
	}
	return sv.clock
}

// Lock performs the Lock transition of spec §4.E's state machine: acquires
// the object's mutex, then applies acquire(tc, sc) unless the lock is held
// recursively by the same thread (recursion never transfers a clock).
//
// Transitions:
//
//	Unlocked          -> WriteHeld(tid,1); acquire(tc, sc)
//	WriteHeld(tid,k)   -> WriteHeld(tid,k+1); no clock transfer (recursive)
//	WriteHeld(other,*) -> surfaced as AnomalyLockInversion; clocks untouched
//	ReadHeld(>0)       -> surfaced as AnomalyLockInversion; clocks untouched
func (sv *SyncVar) Lock(tid uint16, tc *vectorclock.VectorClock) AnomalyKind {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	switch sv.state {
	case Unlocked:
		sv.state = WriteHeld
		sv.ownerTID = tid
		sv.recCount = 1
		clockpkg.Acquire(tc, sv.ensureClock())
		return AnomalyNone
	case WriteHeld:
		if sv.ownerTID == tid {
			sv.recCount++
			return AnomalyNone
		}
		return AnomalyLockInversion
	default: // ReadHeld
		return AnomalyLockInversion
	}
}

// Unlock performs the Unlock transition: on the final recursive unlock it
// ticks the releasing thread's own clock, then applies release(tc, sc, alloc)
// before returning to Unlocked.
//
// Transitions:
//
//	WriteHeld(tid,1) -> Unlocked; tick(tc,tid); release(tc, sc)
//	WriteHeld(tid,k>1) -> WriteHeld(tid,k-1); no clock transfer
//	otherwise -> surfaced as AnomalyUnlockNotHeld; clocks untouched
func (sv *SyncVar) Unlock(tid uint16, tc *vectorclock.VectorClock, alloc *chunkalloc.Allocator) AnomalyKind {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if sv.state != WriteHeld || sv.ownerTID != tid {
		return AnomalyUnlockNotHeld
	}
	if sv.recCount > 1 {
		sv.recCount--
		return AnomalyNone
	}

	clockpkg.Tick(tc, tid)
	_ = clockpkg.Release(tc, sv.ensureClock(), alloc) // exhaustion is reported by the caller via err path at the allocator boundary
	sv.state = Unlocked
	sv.ownerTID = 0
	sv.recCount = 0
	return AnomalyNone
}

// RLock performs the ReadLock transition. Unlike Lock, it does not acquire
// sv.clock: sv.clock is the writer's exclusive-access release clock, and a
// reader inheriting it would let a write performed while only read-locked
// (a misuse, but one the detector must still catch) inherit a prior
// writer's happens-before edge through the read lock, hiding the write-write
// race a reader-lock can never actually prevent. A read lock still
// transitions the state machine and is visible to ReleaseMerge's reader
// count, but it contributes nothing to either side's vector clock - readers
// and writers only synchronize with each other through Lock/Unlock.
func (sv *SyncVar) RLock(tid uint16, tc *vectorclock.VectorClock) AnomalyKind {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if sv.state == WriteHeld {
		return AnomalyLockInversion
	}
	sv.state = ReadHeld
	sv.readers++
	_, _ = tid, tc
	return AnomalyNone
}

// RUnlock performs the ReadUnlock transition: decrements the reader count,
// returning to Unlocked at zero. No clock transfer — reads do not publish.
func (sv *SyncVar) RUnlock() AnomalyKind {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if sv.state != ReadHeld || sv.readers == 0 {
		return AnomalyUnlockNotHeld
	}
	sv.readers--
	if sv.readers == 0 {
		sv.state = Unlocked
	}
	return AnomalyNone
}

// ReleaseMerge implements the RWMutex write-unlock "release merge" used
// when the write-unlocking thread must publish the union of its own clock
// and whatever the object's SyncClock already carries (spec §4.A's acq_rel,
// applied here to a write-unlock rather than an atomic RMW).
func (sv *SyncVar) ReleaseMerge(tid uint16, tc *vectorclock.VectorClock, alloc *chunkalloc.Allocator) AnomalyKind {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if sv.state != WriteHeld || sv.ownerTID != tid {
		return AnomalyUnlockNotHeld
	}
	clockpkg.Tick(tc, tid)
	_ = clockpkg.Release(tc, sv.ensureClock(), alloc)
	sv.state = Unlocked
	sv.ownerTID = 0
	sv.recCount = 0
	return AnomalyNone
}

// AtomicAcquire implements AtomicAcq ≡ acquire (spec §4.E).
func (sv *SyncVar) AtomicAcquire(tc *vectorclock.VectorClock) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	clockpkg.Acquire(tc, sv.ensureClock())
}

// AtomicReleaseOp implements AtomicRel ≡ tick+release (spec §4.E).
func (sv *SyncVar) AtomicReleaseOp(tid uint16, tc *vectorclock.VectorClock, alloc *chunkalloc.Allocator) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	clockpkg.Tick(tc, tid)
	_ = clockpkg.Release(tc, sv.ensureClock(), alloc)
}

// AtomicAcquireRelease implements AtomicAcqRel ≡ tick+acq_rel (spec §4.E).
func (sv *SyncVar) AtomicAcquireRelease(tid uint16, tc *vectorclock.VectorClock, alloc *chunkalloc.Allocator) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	clockpkg.Tick(tc, tid)
	_ = clockpkg.AcqRel(tc, sv.ensureClock(), alloc)
}

// DestroyCheck reports the anomaly to surface (if any) for a Destroy event
// and frees the object's clock chunks back to alloc. Spec §4.E: destroying
// a non-Unlocked object is a MutexDestroyLocked diagnostic, not a fatal
// error — the object is still freed.
func (sv *SyncVar) DestroyCheck(alloc *chunkalloc.Allocator) AnomalyKind {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	anomaly := AnomalyNone
	if sv.state != Unlocked {
		anomaly = AnomalyMutexDestroyLocked
	}
	if sv.clock != nil {
		sv.clock.Free(alloc)
		sv.clock = nil
	}
	return anomaly
}

// State returns the current lock state, for diagnostics and tests.
func (sv *SyncVar) State() (state LockState, owner uint16, recCount, readers uint32) {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	return sv.state, sv.ownerTID, sv.recCount, sv.readers
}

// === Channel State Management (Phase 4 Task 4.2) ===

// GetOrCreateChannel returns the ChannelState for this SyncVar, creating it if needed.
//
// This is called on the first channel operation (send/recv/close) to lazily
// allocate the ChannelState. Subsequent operations reuse the same instance.
//
// Returns:
//   - *ChannelState: The channel state (never nil after this call)
//
// Thread Safety: NOT thread-safe on its own. The caller (SyncShadow) must
// ensure synchronization via sync.Map.
//
// Example:
//
//	sv := &SyncVar{}
//	chState := sv.GetOrCreateChannel()  // Allocates ChannelState
//	chState2 := sv.GetOrCreateChannel() // Returns same instance
//	assert(chState == chState2)
func (sv *SyncVar) GetOrCreateChannel() *ChannelState {
	if sv.channel == nil {
		sv.channel = &ChannelState{}
	}
	return sv.channel
}

// GetChannel returns the ChannelState for this SyncVar, or nil if not a channel.
//
// This is a read-only accessor for checking if a SyncVar is being used
// as a channel (vs mutex/rwmutex).
//
// Returns:
//   - *ChannelState: The channel state, or nil if this is not a channel
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) GetChannel() *ChannelState {
	return sv.channel
}

// SetChannelSendClock captures the sender's clock on channel send.
//
// This is called after a channel send completes. The sender's clock is
// copied into the channel's sendClock for the receiver to merge.
//
// Parameters:
//   - clock: The sender's vector clock (must not be nil)
//
// Performance:
//   - First call: Allocates VectorClock (~1KB) and copies
//   - Subsequent calls: Updates in place (no allocations)
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
//
// Example:
//
//	chState := sv.GetOrCreateChannel()
//	sv.SetChannelSendClock(senderCtx.C)  // Capture sender's clock
func (sv *SyncVar) SetChannelSendClock(clock *vectorclock.VectorClock) {
	chState := sv.GetOrCreateChannel()
	if chState.sendClock == nil {
		// First send: Allocate and copy.
		chState.sendClock = clock.Clone()
	} else {
		// Subsequent send: Update in place.
		for i := 0; i < vectorclock.MaxThreads; i++ {
			chState.sendClock[i] = clock[i]
		}
	}
}

// GetChannelSendClock returns the channel's send clock.
//
// Returns nil if no send has occurred yet.
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) GetChannelSendClock() *vectorclock.VectorClock {
	if sv.channel == nil {
		return nil
	}
	return sv.channel.sendClock
}

// SetChannelRecvClock captures the receiver's clock on channel receive.
//
// This is called after a channel receive completes. The receiver's clock is
// copied into the channel's recvClock for potential bidirectional sync.
//
// Parameters:
//   - clock: The receiver's vector clock (must not be nil)
//
// Performance:
//   - First call: Allocates VectorClock (~1KB) and copies
//   - Subsequent calls: Updates in place (no allocations)
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) SetChannelRecvClock(clock *vectorclock.VectorClock) {
	chState := sv.GetOrCreateChannel()
	if chState.recvClock == nil {
		// First recv: Allocate and copy.
		chState.recvClock = clock.Clone()
	} else {
		// Subsequent recv: Update in place.
		for i := 0; i < vectorclock.MaxThreads; i++ {
			chState.recvClock[i] = clock[i]
		}
	}
}

// GetChannelRecvClock returns the channel's receive clock.
//
// Returns nil if no receive has occurred yet.
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) GetChannelRecvClock() *vectorclock.VectorClock {
	if sv.channel == nil {
		return nil
	}
	return sv.channel.recvClock
}

// SetChannelCloseClock captures the closer's clock on channel close.
//
// This is called when close(ch) is executed. The closer's clock is
// copied into the channel's closeClock, and isClosed is set to true.
//
// Parameters:
//   - clock: The closer's vector clock (must not be nil)
//
// Performance: Allocates VectorClock (~1KB) and copies (one-time).
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) SetChannelCloseClock(clock *vectorclock.VectorClock) {
	chState := sv.GetOrCreateChannel()
	if chState.closeClock == nil {
		// Channel close is one-time operation - allocate and copy.
		chState.closeClock = clock.Clone()
		chState.isClosed = true
	}
	// If already closed, this is a programming error (panic in real code),
	// but we silently ignore for robustness.
}

// GetChannelCloseClock returns the channel's close clock.
//
// Returns nil if channel has not been closed yet.
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) GetChannelCloseClock() *vectorclock.VectorClock {
	if sv.channel == nil {
		return nil
	}
	return sv.channel.closeClock
}

// IsChannelClosed returns true if the channel has been closed.
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) IsChannelClosed() bool {
	if sv.channel == nil {
		return false
	}
	return sv.channel.isClosed
}

// === WaitGroup State Management (Phase 4 Task 4.3) ===

// GetOrCreateWaitGroup returns the WaitGroupState for this SyncVar, creating it if needed.
//
// This is called on the first WaitGroup operation (Add/Done/Wait) to lazily
// allocate the WaitGroupState. Subsequent operations reuse the same instance.
//
// Returns:
//   - *WaitGroupState: The WaitGroup state (never nil after this call)
//
// Thread Safety: NOT thread-safe on its own. The caller (SyncShadow) must
// ensure synchronization via sync.Map.
//
// Example:
//
//	sv := &SyncVar{}
//	wgState := sv.GetOrCreateWaitGroup()  // Allocates WaitGroupState
//	wgState2 := sv.GetOrCreateWaitGroup() // Returns same instance
//	assert(wgState == wgState2)
func (sv *SyncVar) GetOrCreateWaitGroup() *WaitGroupState {
	if sv.waitGroup == nil {
		sv.waitGroup = &WaitGroupState{}
	}
	return sv.waitGroup
}

// GetWaitGroup returns the WaitGroupState for this SyncVar, or nil if not a WaitGroup.
//
// This is a read-only accessor for checking if a SyncVar is being used
// as a WaitGroup (vs mutex/rwmutex/channel).
//
// Returns:
//   - *WaitGroupState: The WaitGroup state, or nil if this is not a WaitGroup
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) GetWaitGroup() *WaitGroupState {
	return sv.waitGroup
}

// WaitGroupAdd increments the WaitGroup counter by delta.
//
// This is called on WaitGroup.Add(delta). The counter is used for optional
// validation to detect misuse patterns (e.g., Done without Add).
//
// Parameters:
//   - delta: The delta to add to the counter (positive for Add, negative for Done)
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization. In practice, this is protected by the actual WaitGroup's
// internal mutex.
//
// Example:
//
//	wgState := sv.GetOrCreateWaitGroup()
//	sv.WaitGroupAdd(1)  // Add(1)
//	sv.WaitGroupAdd(3)  // Add(3) - counter now 4
//	sv.WaitGroupAdd(-1) // Done() - counter now 3
func (sv *SyncVar) WaitGroupAdd(delta int) {
	wgState := sv.GetOrCreateWaitGroup()
	wgState.counter += int32(delta) //nolint:gosec // G115: WaitGroup delta is typically small (<1000), overflow unlikely
}

// MergeWaitGroupDoneClock merges a thread's clock into the WaitGroup's doneClock.
//
// This is called on WaitGroup.Done() to accumulate the happens-before
// relationship. All Done() calls are merged into a single doneClock that
// will be propagated to the waiter.
//
// Parameters:
//   - clock: The thread's vector clock (must not be nil)
//
// Performance:
//   - First call: Allocates VectorClock (~1KB) and copies
//   - Subsequent calls: Element-wise max (no allocations)
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
//
// Example:
//
//	// Child goroutine 1
//	wgState := sv.GetOrCreateWaitGroup()
//	sv.MergeWaitGroupDoneClock(child1Ctx.C)  // First Done: copy
//	// Child goroutine 2
//	sv.MergeWaitGroupDoneClock(child2Ctx.C)  // Second Done: merge
//	// Parent waits
//	parentCtx.C.Join(sv.GetWaitGroupDoneClock())  // Gets union of both children
func (sv *SyncVar) MergeWaitGroupDoneClock(clock *vectorclock.VectorClock) {
	wgState := sv.GetOrCreateWaitGroup()
	if wgState.doneClock == nil {
		// First Done: Allocate and copy.
		wgState.doneClock = clock.Clone()
	} else {
		// Subsequent Done: Merge (join) the clocks.
		// For each thread, take the maximum clock value.
		wgState.doneClock.Join(clock)
	}
}

// GetWaitGroupDoneClock returns the WaitGroup's accumulated done clock.
//
// Returns nil if no Done() has been called yet.
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
//
// Example:
//
//	doneClock := sv.GetWaitGroupDoneClock()
//	if doneClock != nil {
//	    waiterCtx.C.Join(doneClock)  // Merge into waiter's clock
//	}
func (sv *SyncVar) GetWaitGroupDoneClock() *vectorclock.VectorClock {
	if sv.waitGroup == nil {
		return nil
	}
	return sv.waitGroup.doneClock
}

// GetWaitGroupCounter returns the current WaitGroup counter value.
//
// This is primarily for debugging and validation. Returns 0 if no
// WaitGroup operations have occurred.
//
// Thread Safety: NOT thread-safe on its own. The caller must ensure
// synchronization.
func (sv *SyncVar) GetWaitGroupCounter() int32 {
	if sv.waitGroup == nil {
		return 0
	}
	return sv.waitGroup.counter
}
