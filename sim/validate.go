package sim

import "fmt"

// ValidateRequest checks a SimulationRequest against the model invariants
// and returns a list of human-readable problems. An empty list means the
// request is valid. Backends layer engine-specific checks on top of this.
func ValidateRequest(r *SimulationRequest) []string {
	var problems []string

	problems = append(problems, validateGrid(&r.Grid)...)
	problems = append(problems, validateRock(r)...)
	problems = append(problems, validatePVT(r)...)
	problems = append(problems, validateRelPerm(r)...)
	problems = append(problems, validateWells(r)...)
	problems = append(problems, validateSchedule(r)...)

	return problems
}

func validateGrid(g *GridShape) []string {
	var problems []string
	if g.NX <= 0 || g.NY <= 0 || g.NZ <= 0 {
		problems = append(problems, fmt.Sprintf("grid: cell counts must be positive, got %dx%dx%d", g.NX, g.NY, g.NZ))
	}
	if g.DX <= 0 || g.DY <= 0 || g.DZ <= 0 {
		problems = append(problems, fmt.Sprintf("grid: cell sizes must be positive, got DX=%g DY=%g DZ=%g", g.DX, g.DY, g.DZ))
	}
	return problems
}

func validateRock(r *SimulationRequest) []string {
	var problems []string
	n := r.Grid.NumCells()
	arrays := []struct {
		name string
		data []float64
	}{
		{"PORO", r.Rock.Porosity},
		{"PERMX", r.Rock.PermX},
		{"PERMY", r.Rock.PermY},
		{"PERMZ", r.Rock.PermZ},
	}
	for _, a := range arrays {
		if len(a.data) != n {
			problems = append(problems, fmt.Sprintf("rock: %s has %d values, grid has %d cells", a.name, len(a.data), n))
		}
	}
	for i, phi := range r.Rock.Porosity {
		if phi < 0 || phi > 1 {
			problems = append(problems, fmt.Sprintf("rock: PORO[%d]=%g outside [0,1]", i, phi))
			break
		}
	}
	return problems
}

// validatePVT enforces table ordering and the oil FVF invariant: below
// bubble point the oil formation volume factor must be non-increasing with
// increasing pressure.
func validatePVT(r *SimulationRequest) []string {
	var problems []string
	for _, t := range r.PVT {
		if len(t.Rows) == 0 {
			problems = append(problems, fmt.Sprintf("pvt: %s table is empty", t.Phase))
			continue
		}
		for i := 1; i < len(t.Rows); i++ {
			if t.Rows[i].Pressure <= t.Rows[i-1].Pressure {
				problems = append(problems, fmt.Sprintf("pvt: %s table pressures not strictly increasing at row %d", t.Phase, i))
				break
			}
		}
		if t.Phase == PhaseOil {
			for i := 1; i < len(t.Rows); i++ {
				if t.Rows[i].FVF > t.Rows[i-1].FVF {
					problems = append(problems, fmt.Sprintf("pvt: oil FVF increases with pressure at row %d (%g -> %g)", i, t.Rows[i-1].FVF, t.Rows[i].FVF))
					break
				}
			}
		}
		for i, row := range t.Rows {
			if row.Viscosity <= 0 {
				problems = append(problems, fmt.Sprintf("pvt: %s viscosity must be positive at row %d", t.Phase, i))
				break
			}
		}
	}
	return problems
}

// validateRelPerm enforces the endpoint rules: each table starts at the
// primary phase's critical saturation with zero relative permeability and
// reaches a positive maximum at its last row.
func validateRelPerm(r *SimulationRequest) []string {
	var problems []string
	for _, t := range r.RelPerm {
		if len(t.Rows) < 2 {
			problems = append(problems, fmt.Sprintf("relperm: %s table needs at least 2 rows", t.System))
			continue
		}
		for i := 1; i < len(t.Rows); i++ {
			if t.Rows[i].Saturation <= t.Rows[i-1].Saturation {
				problems = append(problems, fmt.Sprintf("relperm: %s saturations not strictly increasing at row %d", t.System, i))
				break
			}
		}
		if t.Rows[0].KrA != 0 {
			problems = append(problems, fmt.Sprintf("relperm: %s must start with zero relative permeability, got %g", t.System, t.Rows[0].KrA))
		}
		if last := t.Rows[len(t.Rows)-1].KrA; last <= 0 {
			problems = append(problems, fmt.Sprintf("relperm: %s must reach a positive maximum, got %g", t.System, last))
		}
	}
	return problems
}

func validateWells(r *SimulationRequest) []string {
	var problems []string
	seen := make(map[string]bool, len(r.Wells))
	for _, w := range r.Wells {
		if w.Name == "" {
			problems = append(problems, "well: empty name")
			continue
		}
		if seen[w.Name] {
			problems = append(problems, fmt.Sprintf("well %s: duplicate declaration", w.Name))
		}
		seen[w.Name] = true
		if w.I < 1 || w.I > r.Grid.NX || w.J < 1 || w.J > r.Grid.NY {
			problems = append(problems, fmt.Sprintf("well %s: location (%d,%d) outside grid %dx%d", w.Name, w.I, w.J, r.Grid.NX, r.Grid.NY))
		}
		if w.K1 < 1 || w.K2 > r.Grid.NZ || w.K1 > w.K2 {
			problems = append(problems, fmt.Sprintf("well %s: completion interval %d-%d invalid for %d layers", w.Name, w.K1, w.K2, r.Grid.NZ))
		}
		if w.Mode == "" {
			problems = append(problems, fmt.Sprintf("well %s: missing initial control mode", w.Name))
		}
		if w.Target < 0 {
			problems = append(problems, fmt.Sprintf("well %s: negative control target %g", w.Name, w.Target))
		}
	}
	return problems
}

// validateSchedule enforces the well back-reference rule: every control
// change must name a well declared in the same request.
func validateSchedule(r *SimulationRequest) []string {
	var problems []string
	for i, e := range r.Schedule {
		hasAdvance := len(e.Advance) > 0
		hasControl := e.Control != nil
		if hasAdvance == hasControl {
			problems = append(problems, fmt.Sprintf("schedule[%d]: exactly one of advance and control must be set", i))
			continue
		}
		if hasAdvance {
			for _, d := range e.Advance {
				if d <= 0 {
					problems = append(problems, fmt.Sprintf("schedule[%d]: non-positive time step %g", i, d))
					break
				}
			}
			continue
		}
		if r.FindWell(e.Control.Well) == nil {
			problems = append(problems, fmt.Sprintf("schedule[%d]: control references undeclared well %s", i, e.Control.Well))
		}
	}
	return problems
}
