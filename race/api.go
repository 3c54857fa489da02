// Package race provides the public API for the Pure-Go race detector.
//
// See doc.go for detailed documentation and examples.
package race

import internal "github.com/vektra-labs/racewatch/internal/race/api"

// Init initializes the race detector runtime.
//
// This function must be called before any other race detector operations.
// The racedetector tool automatically inserts this call at the beginning
// of the main() function.
//
// For manual instrumentation, call Init() at program startup:
//
//	func main() {
//		race.Init()
//		defer race.Fini()
//		// ... rest of program
//	}
//
// Init is safe to call multiple times (subsequent calls are no-ops).
func Init() {
	internal.Init()
}

// Fini finalizes the race detector and prints a summary report.
//
// This function should be called at program exit to ensure all race
// reports are printed and resources are cleaned up. The racedetector
// tool automatically handles this.
//
// For manual instrumentation, use defer:
//
//	func main() {
//		race.Init()
//		defer race.Fini()  // Ensures cleanup on exit
//		// ... rest of program
//	}
//
// The summary includes:
//   - Total number of races detected
//   - Goroutine statistics
//   - Memory usage statistics
func Fini() {
	internal.Fini()
}

// RaceRead records a memory read operation at the given address.
//
// This function is automatically inserted by the racedetector tool before
// each memory read operation. Manual calls are typically not needed.
//
// Parameters:
//   - addr: The memory address being read (use unsafe.Pointer conversion)
//
// Example (automatic instrumentation):
//
//	// Original code:
//	y := x
//
//	// Instrumented code:
//	race.RaceRead(uintptr(unsafe.Pointer(&x)))
//	y := x
//
// The race detector checks if this read conflicts with any concurrent
// writes to the same address that are not properly synchronized.
//
//nolint:revive // RaceRead naming matches Go's official race detector API
func RaceRead(addr uintptr) {
	internal.RaceRead(addr)
}

// RaceWrite records a memory write operation at the given address.
//
// This function is automatically inserted by the racedetector tool before
// each memory write operation. Manual calls are typically not needed.
//
// Parameters:
//   - addr: The memory address being written (use unsafe.Pointer conversion)
//
// Example (automatic instrumentation):
//
//	// Original code:
//	x = 42
//
//	// Instrumented code:
//	race.RaceWrite(uintptr(unsafe.Pointer(&x)))
//	x = 42
//
// The race detector checks if this write conflicts with any concurrent
// reads or writes to the same address that are not properly synchronized.
//
//nolint:revive // RaceWrite naming matches Go's official race detector API
func RaceWrite(addr uintptr) {
	internal.RaceWrite(addr)
}

// RaceAcquire records the acquisition of a synchronization object.
//
// This function establishes a happens-before relationship, indicating that
// all memory operations before a corresponding RaceRelease call are visible
// to operations after this RaceAcquire call.
//
// Typically used for:
//   - sync.Mutex.Lock()
//   - sync.RWMutex.Lock() / RLock()
//   - Receiving from a channel
//   - sync.WaitGroup.Wait()
//
// Parameters:
//   - addr: The address of the synchronization object (e.g., &mutex)
//
// Example (automatic instrumentation):
//
//	// Original code:
//	mu.Lock()
//
//	// Instrumented code:
//	race.RaceAcquire(uintptr(unsafe.Pointer(&mu)))
//	mu.Lock()
//
// This ensures that the race detector understands the synchronization
// and does not report false positives for properly protected code.
//
//nolint:revive // RaceAcquire naming matches Go's official race detector API
func RaceAcquire(addr uintptr) {
	internal.RaceAcquire(addr)
}

// RaceRelease records the release of a synchronization object.
//
// This function establishes a happens-before relationship, indicating that
// all memory operations before this RaceRelease call are visible to
// operations after a corresponding RaceAcquire call.
//
// Typically used for:
//   - sync.Mutex.Unlock()
//   - sync.RWMutex.Unlock() / RUnlock()
//   - Sending to a channel
//   - sync.WaitGroup.Done()
//
// Parameters:
//   - addr: The address of the synchronization object (e.g., &mutex)
//
// Example (automatic instrumentation):
//
//	// Original code:
//	mu.Unlock()
//
//	// Instrumented code:
//	race.RaceRelease(uintptr(unsafe.Pointer(&mu)))
//	mu.Unlock()
//
// This ensures that the race detector understands the synchronization
// and does not report false positives for properly protected code.
//
//nolint:revive // RaceRelease naming matches Go's official race detector API
func RaceRelease(addr uintptr) {
	internal.RaceRelease(addr)
}

// RaceReleaseMerge records the write-unlock of a sync.RWMutex: the releasing
// thread's clock is merged into (rather than overwriting) the mutex's
// release clock, so the union of every overlapping reader's work is
// preserved for the next writer to observe.
//
//nolint:revive // RaceReleaseMerge naming matches Go's official race detector API
func RaceReleaseMerge(addr uintptr) {
	internal.RaceReleaseMerge(addr)
}

// RaceMutexReadLock records a sync.RWMutex.RLock() call.
//
// Unlike RaceAcquire, a read-lock acquires without consuming the mutex's
// release clock for exclusivity purposes - concurrent readers are expected
// and do not race with each other.
func RaceMutexReadLock(addr uintptr) {
	internal.RaceMutexReadLock(addr)
}

// RaceMutexReadUnlock records a sync.RWMutex.RUnlock() call.
func RaceMutexReadUnlock(addr uintptr) {
	internal.RaceMutexReadUnlock(addr)
}

// RaceMutexDestroy records that a mutex has gone out of scope, been reset,
// or otherwise been recycled. A mutex destroyed while still held is
// reported as an anomaly (see suppress/report) but destruction proceeds
// regardless.
func RaceMutexDestroy(addr uintptr) {
	internal.RaceMutexDestroy(addr)
}

// RaceAtomicAcquire records an atomic load with acquire semantics
// (atomic.Bool/Int32/Int64/Pointer/Value.Load and similar).
func RaceAtomicAcquire(addr uintptr) {
	internal.RaceAtomicAcquire(addr)
}

// RaceAtomicRelease records an atomic store with release semantics
// (atomic.Bool/Int32/Int64/Pointer/Value.Store and similar).
func RaceAtomicRelease(addr uintptr) {
	internal.RaceAtomicRelease(addr)
}

// RaceAtomicAcquireRelease records an atomic read-modify-write operation
// (Swap, CompareAndSwap, Add) which both observes and publishes the atomic
// location's clock around a single access.
func RaceAtomicAcquireRelease(addr uintptr) {
	internal.RaceAtomicAcquireRelease(addr)
}

// RaceMemoryRangeInit records (re)allocation of the memory range starting
// at addr, discarding any shadow state left by a previous occupant.
func RaceMemoryRangeInit(addr uintptr) {
	internal.RaceMemoryRangeInit(addr)
}

// RaceMemoryRangeFreed records that the memory range starting at addr has
// been freed.
func RaceMemoryRangeFreed(addr uintptr) {
	internal.RaceMemoryRangeFreed(addr)
}

// RaceWaitGroupAdd records a sync.WaitGroup.Add(delta) call.
func RaceWaitGroupAdd(wg uintptr, delta int) {
	internal.RaceWaitGroupAdd(wg, delta)
}

// RaceWaitGroupDone records a sync.WaitGroup.Done() call.
func RaceWaitGroupDone(wg uintptr) {
	internal.RaceWaitGroupDone(wg)
}

// RaceWaitGroupWaitBefore records that a sync.WaitGroup.Wait() call is
// about to block.
func RaceWaitGroupWaitBefore(wg uintptr) {
	internal.RaceWaitGroupWaitBefore(wg)
}

// RaceWaitGroupWaitAfter records that a sync.WaitGroup.Wait() call has
// returned, merging every Done() call's clock into the waiter.
func RaceWaitGroupWaitAfter(wg uintptr) {
	internal.RaceWaitGroupWaitAfter(wg)
}

// RaceChannelSendBefore records that a channel send is about to block/complete.
func RaceChannelSendBefore(ch uintptr) {
	internal.RaceChannelSendBefore(ch)
}

// RaceChannelSendAfter records that a channel send has completed, capturing
// the sender's clock for the receiver to observe.
func RaceChannelSendAfter(ch uintptr) {
	internal.RaceChannelSendAfter(ch)
}

// RaceChannelRecvBefore records that a channel receive is about to block/complete.
func RaceChannelRecvBefore(ch uintptr) {
	internal.RaceChannelRecvBefore(ch)
}

// RaceChannelRecvAfter records that a channel receive has completed,
// merging the sender's clock into the receiver.
func RaceChannelRecvAfter(ch uintptr) {
	internal.RaceChannelRecvAfter(ch)
}

// RaceChannelClose records a close(ch) call, capturing the closer's clock
// for every future receive to observe.
func RaceChannelClose(ch uintptr) {
	internal.RaceChannelClose(ch)
}
