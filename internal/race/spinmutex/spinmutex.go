// Package spinmutex implements the reader/writer spin-mutex that protects
// sync-object state and the global sync-object registry.
//
// The design is a direct transliteration of ThreadSanitizer's tsan_mutex.cc:
// readers have preference over writers (a writer may starve under heavy read
// load, which is an accepted trade-off for the common read-heavy lookup
// path), and both paths use a short bounded active spin before yielding to
// the scheduler.
package spinmutex

import (
	"runtime"
	"sync/atomic"

	"github.com/vektra-labs/racewatch/internal/race/raceassert"
)

const (
	unlocked  = 0
	writeLock = 1
	readLock  = 2
)

// activeSpinIters and activeSpinCnt mirror tsan_mutex.cc's Backoff: a short
// run of active spinning before falling back to a scheduler yield.
const (
	activeSpinIters = 10
	activeSpinCnt   = 20
)

// backoff implements the bounded spin, then yield schedule used by both
// Lock and ReadLock while they wait for the state word to change.
type backoff struct {
	iter int
}

func (b *backoff) do() {
	if b.iter < activeSpinIters {
		for i := 0; i < activeSpinCnt; i++ {
			runtime.Gosched()
		}
		b.iter++
		return
	}
	runtime.Gosched()
}

// RWMutex is a reader/writer spin-mutex. The zero value is an unlocked
// mutex ready for use.
//
// State word encodes {Unlocked(0), WriteLocked(1), ReadLocked(n*2)} per
// spec: the write bit and the reader count share one word so that ReadLock
// can observe writer presence with a single atomic add.
type RWMutex struct {
	state atomic.Uint64
}

// Lock acquires the mutex for exclusive (write) access.
func (m *RWMutex) Lock() {
	if m.state.CompareAndSwap(unlocked, writeLock) {
		return
	}
	var b backoff
	for {
		b.do()
		if m.state.Load() == unlocked {
			if m.state.CompareAndSwap(unlocked, writeLock) {
				return
			}
		}
	}
}

// Unlock releases a write lock previously acquired with Lock.
func (m *RWMutex) Unlock() {
	prev := m.state.Add(^uint64(writeLock - 1))
	debugAssertWriteBitWasSet(prev)
}

// RLock acquires the mutex for shared (read) access.
func (m *RWMutex) RLock() {
	prev := m.state.Add(readLock)
	if prev&writeLock == 0 {
		return
	}
	var b backoff
	for {
		b.do()
		if m.state.Load()&writeLock == 0 {
			return
		}
	}
}

// RUnlock releases a read lock previously acquired with RLock.
func (m *RWMutex) RUnlock() {
	m.state.Add(^uint64(readLock - 1))
}

// WithLock runs fn while holding the write lock, guaranteeing release even
// if fn panics.
func (m *RWMutex) WithLock(fn func()) {
	m.Lock()
	defer m.Unlock()
	fn()
}

// WithRLock runs fn while holding the read lock, guaranteeing release even
// if fn panics.
func (m *RWMutex) WithRLock(fn func()) {
	m.RLock()
	defer m.RUnlock()
	fn()
}

// debugAssertWriteBitWasSet checks, in racedebug builds only, that the
// write bit was actually set before Unlock cleared it - catching an
// Unlock() with no matching Lock() rather than silently corrupting state.
func debugAssertWriteBitWasSet(prevState uint64) {
	raceassert.Check(prevState&writeLock != 0, "spinmutex: Unlock without matching Lock")
}

// Destroyed reports whether the mutex is currently unlocked, matching the
// tsan_mutex.cc destructor's CHECK that state_ == kUnlocked.
func (m *RWMutex) Destroyed() bool {
	return m.state.Load() == unlocked
}
