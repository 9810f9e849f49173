package sim

// Phase identifies a reservoir fluid phase.
type Phase string

const (
	PhaseOil   Phase = "OIL"
	PhaseWater Phase = "WATER"
	PhaseGas   Phase = "GAS"
)

// ControlMode identifies a well operating control.
type ControlMode string

const (
	ControlORAT ControlMode = "ORAT" // oil rate target (producers)
	ControlWRAT ControlMode = "WRAT" // water rate target (producers)
	ControlGRAT ControlMode = "GRAT" // gas rate target (producers)
	ControlLRAT ControlMode = "LRAT" // liquid rate target (producers)
	ControlRATE ControlMode = "RATE" // surface rate target (injectors)
	ControlBHP  ControlMode = "BHP"  // bottom-hole pressure target
)

// GridShape describes a regular cartesian grid.
type GridShape struct {
	NX, NY, NZ int     // cell counts along each axis
	DX, DY, DZ float64 // uniform cell sizes (m)
	Tops       float64 // depth of the top of the first layer (m)
}

// NumCells returns NX*NY*NZ.
func (g GridShape) NumCells() int {
	return g.NX * g.NY * g.NZ
}

// RockProperties holds per-cell rock arrays. Every slice must have exactly
// GridShape.NumCells() entries; layer-constant data is stored expanded.
type RockProperties struct {
	Porosity []float64
	PermX    []float64 // mD
	PermY    []float64 // mD
	PermZ    []float64 // mD
}

// PVTRow is one pressure point of a fluid property table.
type PVTRow struct {
	Pressure  float64 // bar
	FVF       float64 // rm3/sm3
	Viscosity float64 // cP
}

// PVTTable holds pressure-dependent properties for one phase.
type PVTTable struct {
	Phase Phase
	Rows  []PVTRow // ascending pressure
}

// Densities holds phase densities at surface conditions (kg/m3).
type Densities struct {
	Oil   float64
	Water float64
	Gas   float64
}

// SatSystem identifies a relative-permeability phase pair.
type SatSystem string

const (
	SatOilWater SatSystem = "OIL-WATER" // SWOF: Sw, Krw, Krow, Pcow
	SatGasOil   SatSystem = "GAS-OIL"   // SGOF: Sg, Krg, Krog, Pcgo
)

// RelPermRow is one saturation point of a relative-permeability table.
// KrA is the table's primary phase (water for OIL-WATER, gas for GAS-OIL),
// KrB the opposing oil curve, Pc the capillary pressure (bar).
type RelPermRow struct {
	Saturation float64
	KrA        float64
	KrB        float64
	Pc         float64
}

// RelPermTable holds a saturation function for one phase pair.
type RelPermTable struct {
	System SatSystem
	Rows   []RelPermRow // ascending saturation
}

// Equilibrium specifies initial hydrostatic equilibration.
type Equilibrium struct {
	Datum         float64 // reference depth (m)
	DatumPressure float64 // pressure at datum (bar)
	OWC           float64 // oil-water contact depth (m), 0 if absent
	GOC           float64 // gas-oil contact depth (m), 0 if absent
}

// Well declares a well, its completion interval and its initial control.
// Every well carries an initial control; schedule entries change it later.
type Well struct {
	Name     string
	I, J     int // 1-based grid location
	K1, K2   int // 1-based completion interval, K1 <= K2
	Phase    Phase
	Producer bool
	Mode     ControlMode
	Target   float64 // rate (sm3/day) or pressure (bar) depending on Mode
}

// WellControl changes the operating control of a declared well.
type WellControl struct {
	Well   string
	Mode   ControlMode
	Target float64
}

// ScheduleEntry is one step of the simulation schedule. Exactly one of
// Advance and Control is set: Advance lists time steps in days, Control
// switches a well's operating control before subsequent advances.
type ScheduleEntry struct {
	Advance []float64
	Control *WellControl
}

// SimulationRequest is the canonical, backend-agnostic description of a
// simulation case. It is constructed once by the caller and treated as
// immutable: no component of this layer mutates it.
type SimulationRequest struct {
	Title    string
	Grid     GridShape
	Rock     RockProperties
	PVT      []PVTTable
	Density  Densities
	RelPerm  []RelPermTable
	Equil    Equilibrium
	Wells    []Well
	Summary  []string // requested output vectors, e.g. "FOPR", "WBHP:PROD"
	Schedule []ScheduleEntry
}

// Phases returns the phases for which a PVT table is present, in table order.
func (r *SimulationRequest) Phases() []Phase {
	phases := make([]Phase, 0, len(r.PVT))
	for _, t := range r.PVT {
		phases = append(phases, t.Phase)
	}
	return phases
}

// FindWell returns the declared well with the given name, or nil.
func (r *SimulationRequest) FindWell(name string) *Well {
	for i := range r.Wells {
		if r.Wells[i].Name == name {
			return &r.Wells[i]
		}
	}
	return nil
}

// TotalDays returns the summed length of all schedule advances.
func (r *SimulationRequest) TotalDays() float64 {
	total := 0.0
	for _, e := range r.Schedule {
		for _, d := range e.Advance {
			total += d
		}
	}
	return total
}

// NumSteps returns the total number of schedule time steps.
func (r *SimulationRequest) NumSteps() int {
	n := 0
	for _, e := range r.Schedule {
		n += len(e.Advance)
	}
	return n
}
