package opm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/resbridge/resbridge/sim"
)

func testRequest() *sim.SimulationRequest {
	return &sim.SimulationRequest{
		Title: "stub case",
		Grid:  sim.GridShape{NX: 1, NY: 1, NZ: 1, DX: 100, DY: 100, DZ: 10, Tops: 2500},
		Rock: sim.RockProperties{
			Porosity: []float64{0.25},
			PermX:    []float64{100}, PermY: []float64{100}, PermZ: []float64{10},
		},
		PVT: []sim.PVTTable{
			{Phase: sim.PhaseOil, Rows: []sim.PVTRow{{Pressure: 100, FVF: 1.05, Viscosity: 1.2}, {Pressure: 300, FVF: 1.02, Viscosity: 1.4}}},
			{Phase: sim.PhaseWater, Rows: []sim.PVTRow{{Pressure: 270, FVF: 1.03, Viscosity: 0.3}}},
		},
		Density: sim.Densities{Oil: 850, Water: 1000},
		RelPerm: []sim.RelPermTable{
			{System: sim.SatOilWater, Rows: []sim.RelPermRow{
				{Saturation: 0.2, KrA: 0, KrB: 0.9, Pc: 0}, {Saturation: 0.8, KrA: 0.6, KrB: 0, Pc: 0},
			}},
		},
		Equil:   sim.Equilibrium{Datum: 2505, DatumPressure: 270, OWC: 2550},
		Wells:   []sim.Well{{Name: "PROD", I: 1, J: 1, K1: 1, K2: 1, Phase: sim.PhaseOil, Producer: true, Mode: sim.ControlORAT, Target: 1500}},
		Summary: []string{"FOPR", "WBHP:PROD"},
		Schedule: []sim.ScheduleEntry{
			{Advance: []float64{10, 20}},
		},
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

const stubRSM = ` SUMMARY OF RUN CASE
 TIME FOPR WBHP
 DAYS SM3/DAY BARSA
 PROD
 10 1500 250
 30 1480 245
`

func TestNew_Defaults(t *testing.T) {
	s := New(Config{})
	if s.runner.Binary != "flow" {
		t.Errorf("binary = %q, want flow", s.runner.Binary)
	}
	if n := len(s.runner.Args); n == 0 || s.runner.Args[n-1] != inputFile {
		t.Errorf("args = %v, want deck path last", s.runner.Args)
	}
	if s.runner.Timeout != 0 {
		t.Errorf("timeout = %v, want 0", s.runner.Timeout)
	}
}

func TestValidate_RejectsEmptySchedule(t *testing.T) {
	req := testRequest()
	req.Schedule = nil
	problems := New(Config{}).Validate(req)
	if len(problems) != 1 {
		t.Fatalf("problems = %v", problems)
	}
}

func TestRun_StubEngine_WritesDeckAndReportsProgress(t *testing.T) {
	script := writeScript(t,
		`cat "$FIXTURE" > CASE.RSM
printf 'Report step 1 of 2\nReport step 2 of 2\n' > CASE.PRT
`)
	workdir := t.TempDir()
	fixture := filepath.Join(workdir, "fixture.rsm")
	if err := os.WriteFile(fixture, []byte(stubRSM), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FIXTURE", fixture)

	s := New(Config{Binary: script})
	var last float64
	err := s.Run(context.Background(), testRequest(), workdir, func(f float64) { last = f })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != 1 {
		t.Errorf("final progress = %g, want 1", last)
	}
	if _, err := os.Stat(filepath.Join(workdir, inputFile)); err != nil {
		t.Errorf("deck not written: %v", err)
	}

	res, err := s.ParseResult(workdir, testRequest())
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if res.Field["FOPR"].Len() != 2 {
		t.Errorf("FOPR = %+v", res.Field["FOPR"])
	}
	if _, ok := res.Well["WBHP:PROD"]; !ok {
		t.Errorf("well vectors = %v", res.Well)
	}
	if !res.Convergence.Completed {
		t.Error("clean report marked incomplete")
	}
}

func TestRun_EngineFailure_SurfacesExitCodeAndStderr(t *testing.T) {
	script := writeScript(t, "echo 'matrix is singular' >&2\nexit 7\n")
	s := New(Config{Binary: script})
	err := s.Run(context.Background(), testRequest(), t.TempDir(), nil)
	var execErr *sim.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want ExecutionError", err)
	}
	if execErr.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", execErr.ExitCode)
	}
	if want := "matrix is singular"; !strings.Contains(execErr.StderrTail, want) {
		t.Errorf("stderr tail %q missing %q", execErr.StderrTail, want)
	}
}

func TestRun_Cancel_ThroughTask(t *testing.T) {
	script := writeScript(t, "sleep 30\n")
	s := New(Config{Binary: script})

	task := sim.Launch(context.Background(), s, testRequest(), t.TempDir(), nil)
	time.Sleep(100 * time.Millisecond)
	task.Cancel()
	if err := task.Wait(); err == nil {
		t.Fatal("cancelled run must return an error")
	}
	if task.State() != sim.StateFailed {
		t.Errorf("state = %v, want failed", task.State())
	}
	if task.FailureReason() != sim.CancelledReason {
		t.Errorf("reason = %q, want %q", task.FailureReason(), sim.CancelledReason)
	}
}

func TestParseResult_MissingSummaryFails(t *testing.T) {
	_, err := New(Config{}).ParseResult(t.TempDir(), testRequest())
	if err == nil {
		t.Fatal("missing summary must fail")
	}
}

func TestParseResult_MissingReportTolerated(t *testing.T) {
	workdir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workdir, summaryFile), []byte(stubRSM), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := New(Config{}).ParseResult(workdir, testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Convergence.Warnings) != 1 {
		t.Errorf("warnings = %v", res.Convergence.Warnings)
	}
}
