// Package shadowmem implements shadow memory cells and the race decision
// procedure (component D of the detector core).
//
// # Overview
//
// For every tracked byte range, the shadow memory maintains a CellSet: up to
// K ShadowCells, each recording a past access's (tid, epoch, size, mode).
// On every new access, the CellSet is checked against all of its live cells:
// same-thread accesses are skipped, happens-before-dominated accesses are
// skipped, and any surviving conflict where at least one side writes is
// reported as a race. The new access is always installed afterward, evicting
// an existing cell if the set is already full.
//
// # Components
//
// ShadowCell: one packed access record (epoch, size class, read/write mode).
//
// CellSet: the bounded ring of up to K ShadowCells for one tracked range.
//
// ShadowMemory: the global map from memory addresses to CellSets.
//
// # Usage
//
//	sm := shadowmem.NewShadowMemory()
//	cs := sm.GetOrCreate(addr)
//	if conflict, raced := cs.Access(tid, epoch, shadowmem.Size4, shadowmem.AccessWrite, tc); raced {
//	    // report conflict.Prev vs conflict.Cur
//	}
//
// # Thread Safety
//
// ShadowMemory's GetOrCreate/Get are safe for concurrent use (backed by
// sync.Map). Reset() is not and is intended for test/init use only. CellSet
// serializes its own bookkeeping internally; concurrent Access calls on the
// same CellSet are safe.
package shadowmem
