package conformance

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of running a single scenario.
type Result struct {
	Scenario Scenario
	Passed   bool
	SawRace  bool
	Output   string
	Err      error
}

// Report aggregates the outcome of a full conformance run.
type Report struct {
	Results []Result
}

// Failed returns the subset of Results whose Passed is false.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Run builds and executes every scenario concurrently against the given
// racedetector binary, aggregating pass/fail per scenario.
//
// racedetectorBin is the path to a built 'racedetector' CLI binary (see
// cmd/racedetector); each scenario is written to its own temp workspace and
// run via "racedetectorBin run main.go" so scenarios never share build
// artifacts or process state.
func Run(ctx context.Context, racedetectorBin string) (*Report, error) {
	scenarios := Scenarios()
	results := make([]Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			res, err := runScenario(ctx, racedetectorBin, sc)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return &Report{Results: results}, err
	}
	return &Report{Results: results}, nil
}

// runScenario writes sc's source to an isolated temp directory and runs it
// under the instrumented binary, classifying the outcome against
// sc.ExpectRace. A non-nil error here means the scenario could not be run
// at all (setup failure), not that it failed its expectation - expectation
// mismatches are reported via Result.Passed so one bad scenario doesn't
// abort the rest of the run.
func runScenario(ctx context.Context, racedetectorBin string, sc Scenario) (Result, error) {
	dir, err := os.MkdirTemp("", "racewatch-conformance-"+sc.Name+"-")
	if err != nil {
		return Result{Scenario: sc, Err: err}, err
	}
	defer os.RemoveAll(dir)

	mainPath := filepath.Join(dir, "main.go")
	if err := os.WriteFile(mainPath, []byte(sc.Source), 0o644); err != nil {
		return Result{Scenario: sc, Err: err}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(fmt.Sprintf("module conformance_%s\n\ngo 1.24.0\n", sc.Name)), 0o644); err != nil {
		return Result{Scenario: sc, Err: err}, err
	}

	cmd := exec.CommandContext(ctx, racedetectorBin, "run", mainPath) //nolint:gosec // racedetectorBin is operator-supplied, not user input
	cmd.Dir = dir
	out, runErr := cmd.CombinedOutput()
	output := string(out)

	sawRace := strings.Contains(output, "WARNING: DATA RACE")
	passed := sawRace == sc.ExpectRace

	// runErr (the exited binary's exit code) is intentionally not surfaced
	// as a setup error: a nonzero exit is expected for ExpectRace
	// scenarios that exit after reporting.
	_ = runErr

	return Result{
		Scenario: sc,
		Passed:   passed,
		SawRace:  sawRace,
		Output:   output,
	}, nil
}
