package shadowmem

import (
	"testing"

	"github.com/vektra-labs/racewatch/internal/race/epoch"
	"github.com/vektra-labs/racewatch/internal/race/vectorclock"
)

func TestCellSet_SameThreadNeverRaces(t *testing.T) {
	cs := NewCellSet()
	tc := vectorclock.New()
	tc.Set(1, 10)

	cs.Access(1, epoch.NewEpoch(1, 5), Size4, AccessWrite, tc)
	_, raced := cs.Access(1, epoch.NewEpoch(1, 10), Size4, AccessWrite, tc)

	if raced {
		t.Error("same-thread accesses must never race")
	}
}

func TestCellSet_ConcurrentWriteWriteRaces(t *testing.T) {
	cs := NewCellSet()

	tc1 := vectorclock.New()
	tc1.Set(1, 1)
	cs.Access(1, epoch.NewEpoch(1, 1), Size4, AccessWrite, tc1)

	tc2 := vectorclock.New() // tid 2 has observed nothing from tid 1
	conflict, raced := cs.Access(2, epoch.NewEpoch(2, 1), Size4, AccessWrite, tc2)

	if !raced {
		t.Fatal("expected write-write race with no intervening sync (S1)")
	}
	prevTID, _ := conflict.Prev.E.Decode()
	if prevTID != 1 {
		t.Errorf("conflict.Prev tid = %d, want 1", prevTID)
	}
}

func TestCellSet_ReleaseAcquireSuppressesRace(t *testing.T) {
	cs := NewCellSet()

	tc1 := vectorclock.New()
	tc1.Set(1, 1)
	cs.Access(1, epoch.NewEpoch(1, 1), Size4, AccessWrite, tc1)

	// tid 2 has synchronized with tid 1 up to clock 1 (e.g. via acquire).
	tc2 := vectorclock.New()
	tc2.Set(1, 1)
	_, raced := cs.Access(2, epoch.NewEpoch(2, 1), Size4, AccessWrite, tc2)

	if raced {
		t.Error("a release/acquire edge must suppress the race report")
	}
}

func TestCellSet_ReadReadNeverRaces(t *testing.T) {
	cs := NewCellSet()

	tc1 := vectorclock.New()
	cs.Access(1, epoch.NewEpoch(1, 1), Size4, AccessRead, tc1)

	tc2 := vectorclock.New()
	_, raced := cs.Access(2, epoch.NewEpoch(2, 1), Size4, AccessRead, tc2)

	if raced {
		t.Error("two unsynchronized reads must never race with each other")
	}
}

func TestCellSet_ReadWriteRaces(t *testing.T) {
	cs := NewCellSet()

	tc1 := vectorclock.New()
	cs.Access(1, epoch.NewEpoch(1, 1), Size4, AccessRead, tc1)

	tc2 := vectorclock.New()
	_, raced := cs.Access(2, epoch.NewEpoch(2, 1), Size4, AccessWrite, tc2)

	if !raced {
		t.Error("an unsynchronized read followed by a write must race")
	}
}

func TestCellSet_RetainsUpToKCells(t *testing.T) {
	cs := NewCellSet()
	tc := vectorclock.New()

	for tid := uint16(1); tid <= K; tid++ {
		cs.Access(tid, epoch.NewEpoch(uint8(tid), 1), Size4, AccessRead, tc)
	}

	live := 0
	for _, c := range cs.Cells() {
		if !c.Empty() {
			live++
		}
	}
	if live != K {
		t.Errorf("expected all %d slots filled, got %d", K, live)
	}
}

func TestCellSet_EvictsOldestWhenFull(t *testing.T) {
	cs := NewCellSet()
	tc := vectorclock.New()

	// Fill all K slots with distinct, mutually-concurrent threads so no
	// domination-based eviction applies, forcing the oldest-first fallback.
	for tid := uint16(1); tid <= K; tid++ {
		cs.Access(tid, epoch.NewEpoch(uint8(tid), 1), Size4, AccessRead, tc)
	}

	// One more distinct thread should evict the first-inserted cell (tid 1).
	cs.Access(K+1, epoch.NewEpoch(uint8(K+1), 1), Size4, AccessRead, tc)

	for _, c := range cs.Cells() {
		tid, _ := c.E.Decode()
		if tid == 1 {
			t.Error("expected the oldest cell (tid 1) to have been evicted")
		}
	}
}

func TestCellSet_Reset(t *testing.T) {
	cs := NewCellSet()
	tc := vectorclock.New()
	cs.Access(1, epoch.NewEpoch(1, 1), Size4, AccessWrite, tc)

	cs.Reset()

	for _, c := range cs.Cells() {
		if !c.Empty() {
			t.Error("Reset() must clear every cell")
		}
	}
}
