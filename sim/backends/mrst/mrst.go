// Package mrst implements the simulator backend contract on top of
// Octave/MRST.
//
// Run writes the deck to CASE.DATA plus a generated run_case.m driver into
// the working directory and invokes octave-cli there. The driver is
// expected to leave results.csv (TIME-first column export) and
// run_report.txt behind, which ParseResult translates into a UnifiedResult.
package mrst

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/resbridge/resbridge/sim"
	"github.com/resbridge/resbridge/sim/deck"
	"github.com/resbridge/resbridge/sim/output"
)

const (
	inputFile  = "CASE.DATA"
	driverFile = "run_case.m"
	resultFile = "results.csv"
	reportFile = "run_report.txt"
)

// Config selects the Octave invocation. Zero values take defaults.
type Config struct {
	Binary         string `yaml:"binary"`          // default "octave-cli"
	TimeoutMinutes int    `yaml:"timeout_minutes"` // 0 = no timeout
}

// Simulator drives MRST under Octave. Safe for concurrent Runs with
// distinct working directories.
type Simulator struct {
	runner sim.ExecRunner
}

// New builds an MRST backend from cfg.
func New(cfg Config) *Simulator {
	binary := cfg.Binary
	if binary == "" {
		binary = "octave-cli"
	}
	return &Simulator{
		runner: sim.ExecRunner{
			Binary:  binary,
			Args:    []string{"--no-gui", "--quiet", driverFile},
			Timeout: time.Duration(cfg.TimeoutMinutes) * time.Minute,
		},
	}
}

// Validate layers MRST driver limitations over the shared model
// invariants.
func (s *Simulator) Validate(req *sim.SimulationRequest) []string {
	problems := sim.ValidateRequest(req)
	if req.NumSteps() == 0 {
		problems = append(problems, "schedule has no time steps")
	}
	for _, t := range req.PVT {
		if t.Phase == sim.PhaseGas {
			problems = append(problems, "gas phase is not supported by the MRST driver")
		}
	}
	return problems
}

// Run generates the deck and driver script, then blocks on the Octave
// process. Progress is derived from rows accumulating in results.csv
// between polling intervals.
func (s *Simulator) Run(ctx context.Context, req *sim.SimulationRequest, workdir string, progress sim.ProgressFunc) error {
	text, err := deck.Generate(req)
	if err != nil {
		return fmt.Errorf("generating deck: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, inputFile), text, 0o644); err != nil {
		return fmt.Errorf("writing deck: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, driverFile), []byte(driverScript()), 0o644); err != nil {
		return fmt.Errorf("writing driver script: %w", err)
	}

	expectedRows := req.NumSteps()
	poll := func() {
		if progress == nil || expectedRows == 0 {
			return
		}
		rows := countLines(filepath.Join(workdir, resultFile)) - 1 // header
		if rows > 0 {
			progress(min(1, float64(rows)/float64(expectedRows)))
		}
	}

	if err := s.runner.Run(ctx, workdir, poll); err != nil {
		return err
	}
	if progress != nil {
		progress(1)
	}
	return nil
}

// ParseResult reads results.csv and scans run_report.txt. A missing report
// is tolerated with a warning.
func (s *Simulator) ParseResult(workdir string, req *sim.SimulationRequest) (*sim.UnifiedResult, error) {
	res, err := output.ReadCSVFile(filepath.Join(workdir, resultFile))
	if err != nil {
		return nil, err
	}
	reportPath := filepath.Join(workdir, reportFile)
	if _, statErr := os.Stat(reportPath); statErr != nil {
		logrus.Warnf("mrst: run report %s missing; convergence not checked", reportPath)
		res.Convergence.Warnings = append(res.Convergence.Warnings, "run report missing")
		return res, nil
	}
	if err := output.ScanReportFile(reportPath, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Healthy reports whether the Octave binary resolves on PATH.
func (s *Simulator) Healthy() bool {
	return s.runner.Available()
}

// Info returns backend metadata without touching the engine.
func (s *Simulator) Info() sim.Info {
	return sim.Info{
		Name:        "mrst",
		Engine:      "Octave/MRST",
		Description: "black-oil simulation via the MRST AD solvers under Octave",
	}
}

// driverScript is the generated MRST driver. It reads the deck the backend
// wrote, runs the fully-implicit black-oil solver and exports the unified
// column artifacts at the fixed relative paths this package reads back.
func driverScript() string {
	return `% Generated MRST driver; do not edit, it is rewritten on every run.
mrstModule add ad-core ad-blackoil ad-props deckformat;
diary('` + reportFile + `');
deck = convertDeckUnits(readEclipseDeck('` + inputFile + `'));
G = initEclipseGrid(deck); G = computeGeometry(G);
rock  = initEclipseRock(deck);
fluid = initDeckADIFluid(deck);
model = selectModelFromDeck(G, rock, fluid, deck);
schedule = convertDeckScheduleToMRST(model, deck);
state0 = initStateDeck(model, deck);
[~, states, report] = simulateScheduleAD(state0, model, schedule);
exportUnifiedCSV(states, schedule, model, '` + resultFile + `');
diary off;
exit(0);
`
}

func countLines(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
