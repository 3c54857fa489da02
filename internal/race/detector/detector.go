package detector

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/vektra-labs/racewatch/internal/race/chunkalloc"
	"github.com/vektra-labs/racewatch/internal/race/epoch"
	"github.com/vektra-labs/racewatch/internal/race/goroutine"
	"github.com/vektra-labs/racewatch/internal/race/shadowmem"
	"github.com/vektra-labs/racewatch/internal/race/suppress"
	"github.com/vektra-labs/racewatch/internal/race/syncshadow"
)

// AccessStats is a snapshot of access-volume statistics for monitoring the
// detector's hot path.
type AccessStats struct {
	TotalReads  uint64 // Total read operations.
	TotalWrites uint64 // Total write operations.
}

// Detector implements the bounded-K shadow-cell race detection algorithm
// (spec component D) plus the sync-object state machine (component E).
//
// It maintains global state including shadow memory (tracking access history
// for all memory locations) and goroutine contexts (tracking logical time
// for each thread).
type Detector struct {
	// shadowMemory stores CellSets for all instrumented addresses. This is
	// the core data structure that tracks the last few accesses for every
	// memory location.
	shadowMemory *shadowmem.ShadowMemory

	// syncShadow stores SyncVar cells for all synchronization primitives.
	// This tracks lock state and release clocks for mutexes, rwmutexes,
	// channels, atomics, and WaitGroups.
	syncShadow *syncshadow.SyncShadow

	// alloc backs every SyncVar's chunked SyncClock (component C).
	alloc *chunkalloc.Allocator

	// racesDetected counts the total number of unique races found.
	racesDetected int

	// reportedRaces tracks which races have already been reported.
	// Key format: "{type}:{addr}:{gid1}:{gid2}" (sorted goroutine IDs).
	// This prevents duplicate reports for the same race location.
	reportedRaces sync.Map

	// totalReads and totalWrites are hot-path access counters. They are
	// updated with relaxed atomics rather than under mu: the hot path takes
	// no locks except the per-cell ones inside shadowMemory (spec §5).
	totalReads  atomic.Uint64
	totalWrites atomic.Uint64

	// suppressions, if set, filters race reports whose top application
	// stack frame matches one of its patterns before they are counted or
	// printed (spec §4/I).
	suppressions *suppress.Set

	// mu protects racesDetected counter and suppressions, neither of which
	// is on the hot path.
	mu sync.Mutex
}

// SetSuppressions installs the suppression pattern set consulted before a
// race report is counted or printed. A nil set (the default) suppresses
// nothing.
func (d *Detector) SetSuppressions(s *suppress.Set) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suppressions = s
}

// NewDetector creates and initializes a new race detector instance with an
// unbounded clock-chunk allocator.
func NewDetector() *Detector {
	return NewDetectorWithAllocatorCap(0)
}

// NewDetectorWithAllocatorCap creates a detector whose SyncClock chunk
// allocator is capped at chunkCap live chunks (0 means unbounded). A finite
// cap makes the allocator-exhaustion error path (spec error class 3)
// exercisable in tests without exhausting host memory.
func NewDetectorWithAllocatorCap(chunkCap int64) *Detector {
	return &Detector{
		shadowMemory: shadowmem.NewShadowMemory(),
		syncShadow:   syncshadow.NewSyncShadow(),
		alloc:        chunkalloc.NewAllocator(chunkCap),
	}
}

// OnWrite handles write access to memory at the given address.
//
// This is the CRITICAL HOT PATH function - it is called on EVERY write access
// in instrumented code.
//
// The decision procedure is component D's CellSet.Access: the write's epoch
// is checked against every surviving cell in the range's shadow set, and any
// conflict where the prior cell's thread has not been observed via the
// current thread's vector clock is reported.
//
//go:nosplit
func (d *Detector) OnWrite(addr uintptr, ctx *goroutine.RaceContext) {
	cs := d.shadowMemory.GetOrCreate(addr)
	currentEpoch := ctx.GetEpoch()

	conflict, raced := cs.Access(ctx.TID, currentEpoch, shadowmem.Size8, shadowmem.AccessWrite, ctx.C)
	if raced {
		d.reportRaceV2(raceTypeFor(conflict.Prev.Mode, shadowmem.AccessWrite), addr, nil, conflict.Prev.E, currentEpoch)
	}

	d.totalWrites.Add(1)

	ctx.IncrementClock()
}

// OnRead handles read access to memory at the given address.
//
// This is the CRITICAL HOT PATH function - it is called on EVERY read access
// in instrumented code. Reads are typically MORE frequent than writes.
//
//go:nosplit
func (d *Detector) OnRead(addr uintptr, ctx *goroutine.RaceContext) {
	cs := d.shadowMemory.GetOrCreate(addr)
	currentEpoch := ctx.GetEpoch()

	conflict, raced := cs.Access(ctx.TID, currentEpoch, shadowmem.Size8, shadowmem.AccessRead, ctx.C)
	if raced {
		d.reportRaceV2(raceTypeFor(conflict.Prev.Mode, shadowmem.AccessRead), addr, nil, conflict.Prev.E, currentEpoch)
	}

	d.totalReads.Add(1)

	ctx.IncrementClock()
}

// raceTypeFor maps a (previous-mode, current-mode) pair to one of the
// reporting race-type strings.
func raceTypeFor(prevMode, curMode shadowmem.AccessMode) string {
	switch {
	case prevMode == shadowmem.AccessWrite && curMode == shadowmem.AccessWrite:
		return RaceTypeWriteWrite
	case prevMode == shadowmem.AccessWrite && curMode == shadowmem.AccessRead:
		return RaceTypeWriteRead
	default:
		return RaceTypeReadWrite
	}
}

// reportRace reports a detected data race to stderr.
//
// Deprecated: Use reportRaceV2() instead.
func (d *Detector) reportRace(raceType string, addr uintptr, prevEpoch, currEpoch epoch.Epoch) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.racesDetected++

	fmt.Fprintf(os.Stderr, "==================\n")
	fmt.Fprintf(os.Stderr, "WARNING: DATA RACE\n")
	fmt.Fprintf(os.Stderr, "Type: %s\n", raceType)
	fmt.Fprintf(os.Stderr, "Address: 0x%x\n", addr)
	fmt.Fprintf(os.Stderr, "Previous access: %s\n", prevEpoch.String())
	fmt.Fprintf(os.Stderr, "Current access:  %s\n", currEpoch.String())
	fmt.Fprintf(os.Stderr, "==================\n")
}

// RacesDetected returns the total number of unique races detected.
func (d *Detector) RacesDetected() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.racesDetected
}

// OnAcquire handles mutex lock operations.
//
// This drives the sync-object state machine's Lock transition (spec §4.E).
// Lock inversions and double locks are surfaced via the detector's anomaly
// log rather than treated as fatal.
//
//go:nosplit
func (d *Detector) OnAcquire(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	if anomaly := syncVar.Lock(ctx.TID, ctx.C); anomaly != syncshadow.AnomalyNone {
		d.reportAnomaly(addr, anomaly)
	}
	ctx.IncrementClock()
}

// OnRelease handles mutex unlock operations.
//
// This drives the sync-object state machine's Unlock transition.
//
//go:nosplit
func (d *Detector) OnRelease(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	if anomaly := syncVar.Unlock(ctx.TID, ctx.C, d.alloc); anomaly != syncshadow.AnomalyNone {
		d.reportAnomaly(addr, anomaly)
	}
	ctx.IncrementClock()
}

// OnReleaseMerge handles RWMutex write unlock operations: the releasing
// thread's clock is merged (acq_rel) into the mutex's clock rather than
// simply overwriting it, capturing the union of overlapping readers' work.
//
//go:nosplit
func (d *Detector) OnReleaseMerge(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	if anomaly := syncVar.ReleaseMerge(ctx.TID, ctx.C, d.alloc); anomaly != syncshadow.AnomalyNone {
		d.reportAnomaly(addr, anomaly)
	}
	ctx.IncrementClock()
}

// OnMutexReadLock handles RWMutex.RLock operations: acquire without
// consuming a release (spec §4.E; reads never publish).
//
//go:nosplit
func (d *Detector) OnMutexReadLock(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	if anomaly := syncVar.RLock(ctx.TID, ctx.C); anomaly != syncshadow.AnomalyNone {
		d.reportAnomaly(addr, anomaly)
	}
	ctx.IncrementClock()
}

// OnMutexReadUnlock handles RWMutex.RUnlock operations.
//
//go:nosplit
func (d *Detector) OnMutexReadUnlock(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	if anomaly := syncVar.RUnlock(); anomaly != syncshadow.AnomalyNone {
		d.reportAnomaly(addr, anomaly)
	}
	ctx.IncrementClock()
}

// OnMutexDestroy handles destruction of a mutex/rwmutex. A mutex destroyed
// while still held is reported as an anomaly but its clock chunks are freed
// regardless (spec §4.E: destroy always proceeds).
//
//go:nosplit
func (d *Detector) OnMutexDestroy(addr uintptr) {
	syncVar := d.syncShadow.Get(addr)
	if syncVar == nil {
		return
	}
	if anomaly := syncVar.DestroyCheck(d.alloc); anomaly != syncshadow.AnomalyNone {
		d.reportAnomaly(addr, anomaly)
	}
}

// OnAtomicAcquire implements an atomic load-acquire: the loading thread's
// clock absorbs the atomic location's SyncClock (spec §4.E AtomicAcq).
//
//go:nosplit
func (d *Detector) OnAtomicAcquire(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	syncVar.AtomicAcquire(ctx.C)
	ctx.IncrementClock()
}

// OnAtomicRelease implements an atomic store-release: the storing thread
// ticks its own clock and publishes it into the atomic location's SyncClock
// (spec §4.E AtomicRel).
//
//go:nosplit
func (d *Detector) OnAtomicRelease(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	syncVar.AtomicReleaseOp(ctx.TID, ctx.C, d.alloc)
	ctx.IncrementClock()
}

// OnAtomicAcquireRelease implements an atomic read-modify-write: both
// acquire and release apply around a single tick (spec §4.E AtomicAcqRel).
//
//go:nosplit
func (d *Detector) OnAtomicAcquireRelease(addr uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(addr)
	syncVar.AtomicAcquireRelease(ctx.TID, ctx.C, d.alloc)
	ctx.IncrementClock()
}

// reportAnomaly logs a tool-usage anomaly from the sync-object state
// machine. These are informational (error class 2): logged and execution
// continues, never treated as fatal.
func (d *Detector) reportAnomaly(addr uintptr, anomaly syncshadow.AnomalyKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(os.Stderr, "WARNING: %s at 0x%x\n", anomaly.String(), addr)
}

// === Channel Synchronization Methods ===

// OnChannelSendBefore is called BEFORE a channel send operation.
//
//go:nosplit
func (d *Detector) OnChannelSendBefore(ch uintptr, ctx *goroutine.RaceContext) {
	_ = ch
	_ = ctx
}

// OnChannelSendAfter is called AFTER a channel send operation completes.
// The sender's clock is captured into the channel's sendClock, establishing
// happens-before from the sender to future receivers.
//
//go:nosplit
func (d *Detector) OnChannelSendAfter(ch uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(ch)
	syncVar.SetChannelSendClock(ctx.C)
	ctx.IncrementClock()
}

// OnChannelRecvBefore is called BEFORE a channel receive operation.
//
//go:nosplit
func (d *Detector) OnChannelRecvBefore(ch uintptr, ctx *goroutine.RaceContext) {
	_ = ch
	_ = ctx
}

// OnChannelRecvAfter is called AFTER a channel receive operation completes.
// The receiver merges the sender's (and, if closed, the closer's) clock.
//
//go:nosplit
func (d *Detector) OnChannelRecvAfter(ch uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(ch)

	if sendClock := syncVar.GetChannelSendClock(); sendClock != nil {
		ctx.C.Join(sendClock)
	}

	if syncVar.IsChannelClosed() {
		if closeClock := syncVar.GetChannelCloseClock(); closeClock != nil {
			ctx.C.Join(closeClock)
		}
	}

	syncVar.SetChannelRecvClock(ctx.C)
	ctx.IncrementClock()
}

// OnChannelClose is called when a channel is closed via close(ch). The
// closer's clock is captured so all future receives that observe closure
// happen-after it.
//
//go:nosplit
func (d *Detector) OnChannelClose(ch uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(ch)
	syncVar.SetChannelCloseClock(ctx.C)
	ctx.IncrementClock()
}

// === WaitGroup Synchronization Methods ===

// OnWaitGroupAdd handles WaitGroup.Add(delta) operations.
//
//go:nosplit
func (d *Detector) OnWaitGroupAdd(wg uintptr, delta int, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(wg)
	syncVar.WaitGroupAdd(delta)
	ctx.IncrementClock()
}

// OnWaitGroupDone handles WaitGroup.Done() operations. Done() merges the
// calling thread's clock into the WaitGroup's accumulated doneClock.
//
//go:nosplit
func (d *Detector) OnWaitGroupDone(wg uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(wg)
	syncVar.MergeWaitGroupDoneClock(ctx.C)
	syncVar.WaitGroupAdd(-1)
	ctx.IncrementClock()
}

// OnWaitGroupWaitBefore handles WaitGroup.Wait() BEFORE it blocks.
//
//go:nosplit
func (d *Detector) OnWaitGroupWaitBefore(_ uintptr, ctx *goroutine.RaceContext) {
	ctx.IncrementClock()
}

// OnWaitGroupWaitAfter handles WaitGroup.Wait() AFTER it returns: the
// waiter merges the accumulated doneClock, observing every Done() caller's
// prior work.
//
//go:nosplit
func (d *Detector) OnWaitGroupWaitAfter(wg uintptr, ctx *goroutine.RaceContext) {
	syncVar := d.syncShadow.GetOrCreate(wg)
	if doneClock := syncVar.GetWaitGroupDoneClock(); doneClock != nil {
		ctx.C.Join(doneClock)
	}
	ctx.IncrementClock()
}

// === Thread and memory range lifecycle ===

// OnThreadStart records that a new thread began participating in race
// detection. Shadow-memory bookkeeping needs no action here: a CellSet's
// eviction policy already tolerates an unbounded number of distinct tids
// over its lifetime, it just cannot retain more than K of them
// concurrently.
func (d *Detector) OnThreadStart(_ uint16) {}

// OnThreadJoin establishes the happens-before edge from a child thread's
// final state to the joining thread, mirroring OnWaitGroupWaitAfter's
// merge-then-continue shape.
func (d *Detector) OnThreadJoin(joiner *goroutine.RaceContext, child *goroutine.RaceContext) {
	joiner.C.Join(child.C)
	joiner.IncrementClock()
}

// OnThreadExit is a placeholder for thread-local teardown. The detector
// holds no per-thread state; internal/race/api reclaims contexts and TIDs
// of dead goroutines itself, so there is nothing to release here.
func (d *Detector) OnThreadExit(_ uint16) {}

// OnMemoryRangeInit resets shadow state for a freshly allocated range,
// discarding any stale cells left over from a previous occupant of the
// same address (spec: allocation/free boundaries invalidate prior races).
func (d *Detector) OnMemoryRangeInit(addr uintptr) {
	if cs := d.shadowMemory.Get(addr); cs != nil {
		cs.Reset()
	}
}

// OnMemoryRangeFreed resets shadow state for a freed range.
func (d *Detector) OnMemoryRangeFreed(addr uintptr) {
	if cs := d.shadowMemory.Get(addr); cs != nil {
		cs.Reset()
	}
}

// Finalize flushes any deferred reporting state. It is the detector-level
// analogue of tsan's on-exit report flush; today there is nothing buffered
// beyond the deduplication map, which Reset (not Finalize) clears, so this
// is a safe, explicit no-op call site for callers that want one.
func (d *Detector) Finalize() {}

// Reset resets the detector state for testing.
//
// Thread Safety: NOT safe for concurrent access. The caller must ensure no
// other goroutines are using the detector.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.shadowMemory.Reset()
	d.syncShadow.Reset()
	d.racesDetected = 0

	d.reportedRaces.Range(func(key, _ interface{}) bool {
		d.reportedRaces.Delete(key)
		return true
	})

	d.totalReads.Store(0)
	d.totalWrites.Store(0)
}

// GetAccessStats returns a snapshot of the current access-volume statistics.
func (d *Detector) GetAccessStats() AccessStats {
	return AccessStats{
		TotalReads:  d.totalReads.Load(),
		TotalWrites: d.totalWrites.Load(),
	}
}
