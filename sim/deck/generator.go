package deck

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/resbridge/resbridge/sim"
)

// tokensPerLine bounds array layout width in generated decks.
const tokensPerLine = 8

// minRepeat is the run length at which the N*value shorthand shortens
// output.
const minRepeat = 4

// Generate renders a request as deck text. Output is deterministic:
// generating twice from an unchanged request is byte-for-byte identical,
// and Parse(Generate(r)) reproduces r for every field the generator
// supports. Not covered by the round-trip guarantee: data only backends
// carry (UnifiedResult.Extra) and deck items the model discards (water
// compressibility, contact capillary pressures, well group names).
func Generate(req *sim.SimulationRequest) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, req); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders a request as deck text to w.
func Write(w io.Writer, req *sim.SimulationRequest) error {
	g := &generator{w: w, req: req}
	g.runspec()
	g.grid()
	g.props()
	g.solution()
	g.summary()
	g.schedule()
	return g.err
}

type generator struct {
	w   io.Writer
	req *sim.SimulationRequest
	err error
}

func (g *generator) printf(format string, args ...any) {
	if g.err != nil {
		return
	}
	_, g.err = fmt.Fprintf(g.w, format, args...)
}

// fnum formats a float with the shortest representation that parses back to
// the identical value; fixed across runs.
func fnum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (g *generator) runspec() {
	g.printf("RUNSPEC\n")
	if g.req.Title != "" {
		g.printf("TITLE\n%s\n", g.req.Title)
	}
	g.printf("DIMENS\n %d %d %d /\n", g.req.Grid.NX, g.req.Grid.NY, g.req.Grid.NZ)
	phases := make(map[sim.Phase]bool)
	for _, ph := range g.req.Phases() {
		phases[ph] = true
	}
	for _, ph := range []sim.Phase{sim.PhaseOil, sim.PhaseWater, sim.PhaseGas} {
		if phases[ph] {
			g.printf("%s\n", ph)
		}
	}
	g.printf("METRIC\n")
}

func (g *generator) grid() {
	g.printf("GRID\n")
	n := g.req.Grid.NumCells()
	top := g.req.Grid.NX * g.req.Grid.NY
	g.constantArray("DX", g.req.Grid.DX, n)
	g.constantArray("DY", g.req.Grid.DY, n)
	g.constantArray("DZ", g.req.Grid.DZ, n)
	g.constantArray("TOPS", g.req.Grid.Tops, top)
	g.array("PORO", g.req.Rock.Porosity)
	g.array("PERMX", g.req.Rock.PermX)
	g.array("PERMY", g.req.Rock.PermY)
	g.array("PERMZ", g.req.Rock.PermZ)
}

func (g *generator) constantArray(kw string, v float64, n int) {
	g.printf("%s\n %d*%s /\n", kw, n, fnum(v))
}

// array writes a per-cell array, compressing runs of equal values with the
// repetition shorthand where it shortens output.
func (g *generator) array(kw string, vals []float64) {
	g.printf("%s\n", kw)
	toks := compress(vals)
	for i := 0; i < len(toks); i += tokensPerLine {
		end := min(i+tokensPerLine, len(toks))
		g.printf(" %s\n", strings.Join(toks[i:end], " "))
	}
	g.printf("/\n")
}

func compress(vals []float64) []string {
	var toks []string
	for i := 0; i < len(vals); {
		j := i + 1
		for j < len(vals) && vals[j] == vals[i] {
			j++
		}
		run := j - i
		if run >= minRepeat {
			toks = append(toks, fmt.Sprintf("%d*%s", run, fnum(vals[i])))
		} else {
			for k := 0; k < run; k++ {
				toks = append(toks, fnum(vals[i]))
			}
		}
		i = j
	}
	return toks
}

func (g *generator) props() {
	g.printf("PROPS\n")
	for _, t := range g.req.PVT {
		switch t.Phase {
		case sim.PhaseOil, sim.PhaseGas:
			kw := "PVDO"
			if t.Phase == sim.PhaseGas {
				kw = "PVDG"
			}
			g.printf("%s\n", kw)
			for _, row := range t.Rows {
				g.printf(" %s %s %s\n", fnum(row.Pressure), fnum(row.FVF), fnum(row.Viscosity))
			}
			g.printf("/\n")
		case sim.PhaseWater:
			// Single-record water table; compressibility is not modeled.
			row := t.Rows[0]
			g.printf("PVTW\n %s %s 0 %s /\n", fnum(row.Pressure), fnum(row.FVF), fnum(row.Viscosity))
		}
	}
	g.printf("DENSITY\n %s %s %s /\n", fnum(g.req.Density.Oil), fnum(g.req.Density.Water), fnum(g.req.Density.Gas))
	for _, t := range g.req.RelPerm {
		kw := "SWOF"
		if t.System == sim.SatGasOil {
			kw = "SGOF"
		}
		g.printf("%s\n", kw)
		for _, row := range t.Rows {
			g.printf(" %s %s %s %s\n", fnum(row.Saturation), fnum(row.KrA), fnum(row.KrB), fnum(row.Pc))
		}
		g.printf("/\n")
	}
}

func (g *generator) solution() {
	g.printf("SOLUTION\n")
	e := g.req.Equil
	g.printf("EQUIL\n %s %s %s 0 %s 0 /\n", fnum(e.Datum), fnum(e.DatumPressure), fnum(e.OWC), fnum(e.GOC))
}

// summary writes output-vector declarations, grouping consecutive
// well-level entries that share a mnemonic into one record.
func (g *generator) summary() {
	g.printf("SUMMARY\n")
	entries := g.req.Summary
	for i := 0; i < len(entries); {
		name := entries[i]
		colon := strings.Index(name, ":")
		if colon < 0 {
			g.printf("%s\n", name)
			i++
			continue
		}
		mnemonic := name[:colon]
		var wells []string
		for i < len(entries) && strings.HasPrefix(entries[i], mnemonic+":") {
			wells = append(wells, "'"+entries[i][colon+1:]+"'")
			i++
		}
		g.printf("%s\n %s /\n", mnemonic, strings.Join(wells, " "))
	}
}

func (g *generator) schedule() {
	g.printf("SCHEDULE\n")
	g.printf("WELSPECS\n")
	for _, w := range g.req.Wells {
		g.printf(" '%s' 'G1' %d %d %s '%s' /\n", w.Name, w.I, w.J, fnum(g.req.Grid.Tops), w.Phase)
	}
	g.printf("/\n")
	g.printf("COMPDAT\n")
	for _, w := range g.req.Wells {
		g.printf(" '%s' %d %d %d %d 'OPEN' /\n", w.Name, w.I, w.J, w.K1, w.K2)
	}
	g.printf("/\n")
	for _, w := range g.req.Wells {
		g.control(w.Name, w.Producer, w.Mode, w.Target)
	}
	for _, e := range g.req.Schedule {
		if e.Control != nil {
			w := g.req.FindWell(e.Control.Well)
			producer := w == nil || w.Producer
			g.control(e.Control.Well, producer, e.Control.Mode, e.Control.Target)
			continue
		}
		toks := make([]string, len(e.Advance))
		for i, d := range e.Advance {
			toks[i] = fnum(d)
		}
		g.printf("TSTEP\n %s /\n", strings.Join(toks, " "))
	}
}

func (g *generator) control(well string, producer bool, mode sim.ControlMode, target float64) {
	w := g.req.FindWell(well)
	if producer {
		g.printf("WCONPROD\n '%s' 'OPEN' '%s' %s /\n/\n", well, mode, fnum(target))
		return
	}
	phase := sim.PhaseWater
	if w != nil {
		phase = w.Phase
	}
	g.printf("WCONINJE\n '%s' '%s' 'OPEN' '%s' %s /\n/\n", well, phase, mode, fnum(target))
}
