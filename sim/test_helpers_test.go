package sim

import (
	"context"
	"sync"
)

// constSlice fills a per-cell array with a single value.
func constSlice(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// validRequest builds a two-phase 10x10x3 request that passes
// ValidateRequest. Tests mutate copies of it to trigger specific problems.
func validRequest() *SimulationRequest {
	n := 10 * 10 * 3
	return &SimulationRequest{
		Title: "test case",
		Grid:  GridShape{NX: 10, NY: 10, NZ: 3, DX: 100, DY: 100, DZ: 10, Tops: 2500},
		Rock: RockProperties{
			Porosity: constSlice(n, 0.25),
			PermX:    constSlice(n, 200),
			PermY:    constSlice(n, 200),
			PermZ:    constSlice(n, 20),
		},
		PVT: []PVTTable{
			{Phase: PhaseOil, Rows: []PVTRow{
				{Pressure: 100, FVF: 1.05, Viscosity: 1.2},
				{Pressure: 200, FVF: 1.02, Viscosity: 1.3},
				{Pressure: 300, FVF: 1.01, Viscosity: 1.4},
			}},
			{Phase: PhaseWater, Rows: []PVTRow{{Pressure: 270, FVF: 1.03, Viscosity: 0.3}}},
		},
		Density: Densities{Oil: 850, Water: 1025, Gas: 0.9},
		RelPerm: []RelPermTable{
			{System: SatOilWater, Rows: []RelPermRow{
				{Saturation: 0.15, KrA: 0, KrB: 0.9},
				{Saturation: 0.5, KrA: 0.3, KrB: 0.3},
				{Saturation: 0.85, KrA: 0.8, KrB: 0},
			}},
		},
		Equil: Equilibrium{Datum: 2510, DatumPressure: 270, OWC: 2550},
		Wells: []Well{
			{Name: "PROD", I: 10, J: 10, K1: 1, K2: 3, Phase: PhaseOil, Producer: true, Mode: ControlORAT, Target: 1500},
			{Name: "INJ", I: 1, J: 1, K1: 1, K2: 3, Phase: PhaseWater, Mode: ControlRATE, Target: 2000},
		},
		Summary: []string{"FOPR", "FWPR", "WBHP:PROD", "WBHP:INJ"},
		Schedule: []ScheduleEntry{
			{Advance: []float64{10, 20, 30}},
			{Control: &WellControl{Well: "PROD", Mode: ControlBHP, Target: 180}},
			{Advance: []float64{30}},
		},
	}
}

// fakeSim is a scripted Simulator for registry and task tests.
type fakeSim struct {
	name     string
	healthy  bool
	problems []string
	runFn    func(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error

	mu   sync.Mutex
	runs int
}

func (f *fakeSim) Validate(req *SimulationRequest) []string { return f.problems }

func (f *fakeSim) Run(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.runFn != nil {
		return f.runFn(ctx, req, workdir, progress)
	}
	return nil
}

func (f *fakeSim) ParseResult(workdir string, req *SimulationRequest) (*UnifiedResult, error) {
	return NewUnifiedResult(), nil
}

func (f *fakeSim) Healthy() bool { return f.healthy }

func (f *fakeSim) Info() Info {
	return Info{Name: f.name, Engine: "fake " + f.name}
}
