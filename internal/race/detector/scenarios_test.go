package detector

import (
	"testing"

	"github.com/vektra-labs/racewatch/internal/race/goroutine"
)

// TestScenarios exercises the six end-to-end boundary scenarios against the
// public Detector surface. Each subtest drives a small fixed sequence of
// memory and synchronization events from one or more simulated threads and
// checks whether a race was reported, matching the expected outcome for
// that access pattern.

func TestScenarios(t *testing.T) {
	t.Run("S1_ClassicRace", func(t *testing.T) {
		d := NewDetector()
		const addr = uintptr(0x1000)

		t1 := goroutine.Alloc(1)
		t2 := goroutine.Alloc(2)

		captureStderr(t, func() {
			d.OnWrite(addr, t1)
			d.OnWrite(addr, t2)
		})

		if d.RacesDetected() != 1 {
			t.Errorf("S1: expected 1 race, got %d", d.RacesDetected())
		}
	})

	t.Run("S2_LockProtected_NoRace", func(t *testing.T) {
		d := NewDetector()
		const addr = uintptr(0x2000)
		const mutex = uintptr(0x2100)

		t1 := goroutine.Alloc(1)
		t2 := goroutine.Alloc(2)

		d.OnAcquire(mutex, t1)
		d.OnWrite(addr, t1)
		d.OnRelease(mutex, t1)

		d.OnAcquire(mutex, t2)
		d.OnWrite(addr, t2)
		d.OnRelease(mutex, t2)

		if d.RacesDetected() != 0 {
			t.Errorf("S2: expected no race, got %d", d.RacesDetected())
		}
	})

	t.Run("S3_AtomicSignalWait", func(t *testing.T) {
		d := NewDetector()
		const addr = uintptr(0x3000)
		const flag = uintptr(0x3100)

		t1 := goroutine.Alloc(1)
		t2 := goroutine.Alloc(2)

		d.OnWrite(addr, t1)
		d.OnAtomicRelease(flag, t1)

		d.OnAtomicAcquire(flag, t2)
		d.OnRead(addr, t2)

		if d.RacesDetected() != 0 {
			t.Errorf("S3: expected no race, got %d", d.RacesDetected())
		}
	})

	t.Run("S4_ReadLockDoesNotSynchronizeWrites", func(t *testing.T) {
		d := NewDetector()
		const addr = uintptr(0x4000)
		const mutex = uintptr(0x4100)

		t1 := goroutine.Alloc(1)
		t2 := goroutine.Alloc(2)

		d.OnAcquire(mutex, t1)
		d.OnWrite(addr, t1)
		d.OnRelease(mutex, t1)

		d.OnMutexReadLock(mutex, t2)
		captureStderr(t, func() {
			d.OnWrite(addr, t2)
		})
		d.OnMutexReadUnlock(mutex, t2)

		if d.RacesDetected() != 1 {
			t.Errorf("S4: expected 1 race, got %d", d.RacesDetected())
		}
	})

	t.Run("S5_ThreadJoin", func(t *testing.T) {
		d := NewDetector()
		const addr = uintptr(0x5000)

		t0 := goroutine.Alloc(0)
		t1 := goroutine.Alloc(1)

		d.OnThreadStart(1)
		d.OnWrite(addr, t1)
		d.OnThreadExit(1)

		d.OnThreadJoin(t0, t1)
		d.OnWrite(addr, t0)

		if d.RacesDetected() != 0 {
			t.Errorf("S5: expected no race, got %d", d.RacesDetected())
		}
	})

	t.Run("S6_MutexDestroyedWhileHeld", func(t *testing.T) {
		d := NewDetector()
		const mutex = uintptr(0x6000)

		t1 := goroutine.Alloc(1)

		captureStderr(t, func() {
			d.OnAcquire(mutex, t1)
			d.OnMutexDestroy(mutex)
		})
	})
}
