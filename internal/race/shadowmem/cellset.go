// Package shadowmem implements the shadow memory and race decision
// procedure (component D): a bounded-capacity ring of shadow cells per
// tracked byte range, and the classifier that decides whether a new access
// races with any surviving cell.
//
// This replaces an earlier single-cell adaptive epoch/vector-clock
// representation with the bounded-K model the detector core is specified
// against: every access is checked against up to K retained cells instead
// of exactly one write-epoch and one read-epoch-or-clock.
package shadowmem

import (
	"sync"

	"github.com/vektra-labs/racewatch/internal/race/epoch"
	"github.com/vektra-labs/racewatch/internal/race/vectorclock"
)

// K is the number of shadow cells retained per tracked byte range.
const K = 4

// AccessMode distinguishes read from write accesses recorded in a cell.
type AccessMode uint8

const (
	AccessRead  AccessMode = 0
	AccessWrite AccessMode = 1
)

// SizeClass enumerates the access widths the classifier distinguishes.
// SizeRange marks a cell installed for a multi-byte access recorded as a
// single range cell rather than per-byte (spec §4.D.2).
type SizeClass uint8

const (
	Size1     SizeClass = 1
	Size2     SizeClass = 2
	Size4     SizeClass = 4
	Size8     SizeClass = 8
	SizeRange SizeClass = 0xFF
)

// ShadowCell is one packed access record: the accessing thread's epoch at
// the time of access, the access width, and read/write mode.
type ShadowCell struct {
	E     epoch.Epoch
	Size  SizeClass
	Mode  AccessMode
	valid bool
}

// Empty reports whether the cell slot currently holds no recorded access.
func (c ShadowCell) Empty() bool {
	return !c.valid
}

// Conflict reports a detected race: the new access and the prior cell it
// raced against.
type Conflict struct {
	Prev ShadowCell
	Cur  ShadowCell
}

// CellSet is the bounded ring of up to K ShadowCells for one tracked byte
// range. The zero value is an empty, ready-to-use CellSet.
//
// Access is guarded by a plain mutex rather than a single packed atomic
// word: Go has no native 128-bit CAS, and the teacher's own shadow-cell
// representation already used a mutex for the equivalent invariant. Both
// readers and writers that land on the same byte concurrently still end up
// retained (up to K), preserving the soundness property spec §5 calls out
// — the mutex only serializes the bookkeeping, not the happens-before
// semantics.
type CellSet struct {
	mu      sync.Mutex
	cells   [K]ShadowCell
	seqs    [K]uint64
	nextSeq uint64
}

// NewCellSet returns an empty CellSet.
func NewCellSet() *CellSet {
	return &CellSet{}
}

// Reset clears every cell, as on an explicit range-reset (allocation, free,
// unmap).
func (cs *CellSet) Reset() {
	cs.mu.Lock()
	cs.cells = [K]ShadowCell{}
	cs.seqs = [K]uint64{}
	cs.nextSeq = 0
	cs.mu.Unlock()
}

// Access runs the full race-decision procedure (spec §4.D) for one access
// by tid at e (the accessing thread's current epoch), width size, in mode
// write-or-read, checked against tc (the accessing thread's ThreadClock).
//
// It returns the first conflicting cell found, if any, and always installs
// the new access into the set afterward (so a race is reported once per
// pair, then recording continues — matching spec's "continue to record the
// new cell" instruction).
func (cs *CellSet) Access(tid uint16, e epoch.Epoch, size SizeClass, mode AccessMode, tc *vectorclock.VectorClock) (Conflict, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var conflict Conflict
	raced := false

	for i := range cs.cells {
		prev := cs.cells[i]
		if prev.Empty() {
			continue
		}
		prevTID, prevClock := prev.E.Decode()
		if prevTID == uint8(tid) {
			continue // same thread never races with itself
		}
		if uint32(tc.Get(uint16(prevTID))) >= prevClock {
			continue // happens-before already established
		}
		if !raced && (mode == AccessWrite || prev.Mode == AccessWrite) {
			conflict = Conflict{Prev: prev, Cur: ShadowCell{E: e, Size: size, Mode: mode, valid: true}}
			raced = true
		}
	}

	cs.install(ShadowCell{E: e, Size: size, Mode: mode, valid: true}, tc)
	return conflict, raced
}

// install places cell into a free slot, or evicts per policy if all K slots
// are occupied.
//
// Eviction policy (documented, not guessed past — see SPEC_FULL.md §9):
// prefer a slot whose cell is already happens-before-dominated by the new
// access's own thread clock (the information available at this call site;
// checking domination against every other live thread's clock would
// require access to the global thread registry, which this component does
// not hold), falling back to oldest-first by insertion sequence.
func (cs *CellSet) install(cell ShadowCell, tc *vectorclock.VectorClock) {
	for i := range cs.cells {
		if cs.cells[i].Empty() {
			cs.cells[i] = cell
			cs.seqs[i] = cs.nextSeq
			cs.nextSeq++
			return
		}
	}

	for i := range cs.cells {
		tid, clk := cs.cells[i].E.Decode()
		if uint32(tc.Get(uint16(tid))) >= clk {
			cs.cells[i] = cell
			cs.seqs[i] = cs.nextSeq
			cs.nextSeq++
			return
		}
	}

	oldest := 0
	for i := 1; i < K; i++ {
		if cs.seqs[i] < cs.seqs[oldest] {
			oldest = i
		}
	}
	cs.cells[oldest] = cell
	cs.seqs[oldest] = cs.nextSeq
	cs.nextSeq++
}

// Cells returns a snapshot copy of the currently retained cells, for
// diagnostics and testing.
func (cs *CellSet) Cells() [K]ShadowCell {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.cells
}
