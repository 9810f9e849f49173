// Package opm implements the simulator backend contract on top of OPM Flow.
//
// Run writes the deck to CASE.DATA inside the working directory, invokes the
// flow binary there and leaves the engine's native artifacts in place:
// CASE.RSM (run summary table) and CASE.PRT (run report), which ParseResult
// translates into a UnifiedResult.
package opm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/resbridge/resbridge/sim"
	"github.com/resbridge/resbridge/sim/deck"
	"github.com/resbridge/resbridge/sim/output"
)

const (
	inputFile   = "CASE.DATA"
	summaryFile = "CASE.RSM"
	reportFile  = "CASE.PRT"

	// reportStepMarker appears in the PRT once per completed report step;
	// counting it gives a coarse, monotone progress estimate.
	reportStepMarker = "Report step"
)

// Config selects the engine invocation. Zero values take defaults.
type Config struct {
	Binary         string   `yaml:"binary"`          // default "flow"
	Args           []string `yaml:"args"`            // extra flags before the deck path
	TimeoutMinutes int      `yaml:"timeout_minutes"` // 0 = no timeout
}

// Simulator drives OPM Flow. Safe for concurrent Runs with distinct
// working directories.
type Simulator struct {
	runner sim.ExecRunner
}

// New builds an OPM Flow backend from cfg.
func New(cfg Config) *Simulator {
	binary := cfg.Binary
	if binary == "" {
		binary = "flow"
	}
	args := append(append([]string{}, cfg.Args...), inputFile)
	return &Simulator{
		runner: sim.ExecRunner{
			Binary:  binary,
			Args:    args,
			Timeout: time.Duration(cfg.TimeoutMinutes) * time.Minute,
		},
	}
}

// Validate layers flow-specific checks over the shared model invariants.
func (s *Simulator) Validate(req *sim.SimulationRequest) []string {
	problems := sim.ValidateRequest(req)
	if req.NumSteps() == 0 {
		problems = append(problems, "schedule has no time steps; flow would exit immediately")
	}
	return problems
}

// Run generates CASE.DATA and blocks on the flow process. Progress is
// derived from report-step lines accumulating in the PRT file between
// polling intervals.
func (s *Simulator) Run(ctx context.Context, req *sim.SimulationRequest, workdir string, progress sim.ProgressFunc) error {
	text, err := deck.Generate(req)
	if err != nil {
		return fmt.Errorf("generating deck: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, inputFile), text, 0o644); err != nil {
		return fmt.Errorf("writing deck: %w", err)
	}

	totalSteps := req.NumSteps()
	poll := func() {
		if progress == nil || totalSteps == 0 {
			return
		}
		done := countMarker(filepath.Join(workdir, reportFile), reportStepMarker)
		progress(min(1, float64(done)/float64(totalSteps)))
	}

	if err := s.runner.Run(ctx, workdir, poll); err != nil {
		return err
	}
	if progress != nil {
		progress(1)
	}
	return nil
}

// ParseResult reads CASE.RSM and scans CASE.PRT. A missing report file is
// tolerated with a warning; a missing summary is not, since without it
// there is no result at all.
func (s *Simulator) ParseResult(workdir string, req *sim.SimulationRequest) (*sim.UnifiedResult, error) {
	res, err := output.ReadRSMFile(filepath.Join(workdir, summaryFile))
	if err != nil {
		return nil, err
	}
	reportPath := filepath.Join(workdir, reportFile)
	if _, statErr := os.Stat(reportPath); statErr != nil {
		logrus.Warnf("opm: run report %s missing; convergence not checked", reportPath)
		res.Convergence.Warnings = append(res.Convergence.Warnings, "run report missing")
		return res, nil
	}
	if err := output.ScanReportFile(reportPath, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Healthy reports whether the flow binary resolves on PATH.
func (s *Simulator) Healthy() bool {
	return s.runner.Available()
}

// Info returns backend metadata without touching the engine.
func (s *Simulator) Info() sim.Info {
	return sim.Info{
		Name:        "opm",
		Engine:      "OPM Flow",
		Description: "black-oil simulation via the OPM Flow executable",
	}
}

func countMarker(path, marker string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return strings.Count(string(data), marker)
}
