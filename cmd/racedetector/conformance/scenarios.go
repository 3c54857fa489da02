// Package conformance runs the detector's end-to-end boundary scenarios
// (S1-S6) against real instrumented binaries, as a live cross-check on top
// of the in-process unit coverage in internal/race/detector.
package conformance

// Scenario is one end-to-end boundary case: a small standalone Go program
// plus the expected verdict when it is run under the instrumented build.
type Scenario struct {
	// Name identifies the scenario in reports (S1, S2, ...).
	Name string

	// Source is a complete main package exercising the access pattern.
	Source string

	// ExpectRace is true if the scenario's access pattern is a genuine
	// data race that the instrumented binary must report.
	ExpectRace bool
}

// Scenarios returns the fixed S1-S6 boundary scenarios.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:       "S1_ClassicRace",
			ExpectRace: true,
			Source: `package main

import "sync"

var x int

func main() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); x = 1 }()
	go func() { defer wg.Done(); x = 2 }()
	wg.Wait()
}
`,
		},
		{
			Name:       "S2_LockProtected",
			ExpectRace: false,
			Source: `package main

import "sync"

var (
	x  int
	mu sync.Mutex
)

func main() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); mu.Lock(); x = 1; mu.Unlock() }()
	go func() { defer wg.Done(); mu.Lock(); x = 2; mu.Unlock() }()
	wg.Wait()
}
`,
		},
		{
			Name:       "S3_AtomicSignalWait",
			ExpectRace: false,
			Source: `package main

import (
	"sync"
	"sync/atomic"
)

var (
	x    int
	flag atomic.Bool
)

func main() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		x = 1
		flag.Store(true)
	}()
	go func() {
		defer wg.Done()
		for !flag.Load() {
		}
		_ = x
	}()
	wg.Wait()
}
`,
		},
		{
			Name:       "S4_ReadLockDoesNotSynchronizeWrites",
			ExpectRace: true,
			Source: `package main

import "sync"

var (
	x  int
	mu sync.RWMutex
)

func main() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); mu.Lock(); x = 1; mu.Unlock() }()
	go func() { defer wg.Done(); mu.RLock(); x = 2; mu.RUnlock() }()
	wg.Wait()
}
`,
		},
		{
			Name:       "S5_ThreadJoin",
			ExpectRace: false,
			Source: `package main

var x int

func main() {
	done := make(chan struct{})
	go func() {
		x = 1
		close(done)
	}()
	<-done
	x = 2
}
`,
		},
		{
			Name:       "S6_MutexDestroyedWhileHeld",
			ExpectRace: false,
			Source: `package main

import "sync"

func main() {
	mu := &sync.Mutex{}
	mu.Lock()
	mu = nil
	_ = mu
}
`,
		},
	}
}
