package deck

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/resbridge/resbridge/sim"
)

// ParseResult is a successfully parsed deck: the request plus any non-fatal
// warnings collected along the way (skipped vendor keywords, unit notes).
type ParseResult struct {
	Request  *sim.SimulationRequest
	Warnings []string
}

var sectionOrder = []string{"RUNSPEC", "GRID", "PROPS", "SOLUTION", "SUMMARY", "SCHEDULE"}

// keywordSection maps every recognized keyword to the section it belongs
// to. SUMMARY mnemonics are recognized structurally, not listed here.
var keywordSection = map[string]string{
	"TITLE": "RUNSPEC", "DIMENS": "RUNSPEC", "OIL": "RUNSPEC", "WATER": "RUNSPEC",
	"GAS": "RUNSPEC", "METRIC": "RUNSPEC", "FIELD": "RUNSPEC",
	"DX": "GRID", "DY": "GRID", "DZ": "GRID", "TOPS": "GRID",
	"PORO": "GRID", "PERMX": "GRID", "PERMY": "GRID", "PERMZ": "GRID",
	"PVDO": "PROPS", "PVTW": "PROPS", "PVDG": "PROPS", "DENSITY": "PROPS",
	"SWOF": "PROPS", "SGOF": "PROPS",
	"EQUIL":    "SOLUTION",
	"WELSPECS": "SCHEDULE", "COMPDAT": "SCHEDULE",
	"WCONPROD": "SCHEDULE", "WCONINJE": "SCHEDULE", "TSTEP": "SCHEDULE",
}

// ParseFile parses the deck at path.
func ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening deck: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}

// Parse reads deck text into a SimulationRequest. src names the input for
// error messages. Unrecognized keywords are skipped with a warning so decks
// using vendor extensions remain loadable; structural problems (section
// order, array sizes, forward well references, malformed numbers) return a
// *sim.ParseError carrying the offending line and keyword.
func Parse(src string, r io.Reader) (*ParseResult, error) {
	sc, err := newScanner(src, r)
	if err != nil {
		return nil, err
	}
	p := &parser{
		src:        src,
		sc:         sc,
		req:        &sim.SimulationRequest{},
		section:    -1,
		phaseFlags: make(map[sim.Phase]bool),
		controlled: make(map[string]bool),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return &ParseResult{Request: p.req, Warnings: p.warnings}, nil
}

type parser struct {
	src        string
	sc         *scanner
	req        *sim.SimulationRequest
	warnings   []string
	section    int // index into sectionOrder, -1 before RUNSPEC
	phaseFlags map[sim.Phase]bool
	controlled map[string]bool // wells whose initial control is set
}

func (p *parser) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logrus.Warnf("deck %s: %s", p.src, msg)
	p.warnings = append(p.warnings, msg)
}

func (p *parser) run() error {
	for {
		l := p.sc.next()
		if l == nil {
			break
		}
		fields := strings.Fields(l.text)
		kw := fields[0]
		rest := fields[1:]

		if idx := sectionIndex(kw); idx >= 0 {
			if idx != p.section+1 {
				return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw,
					Msg: fmt.Sprintf("section out of order (expected %s)", expectedSection(p.section))}
			}
			p.section = idx
			logrus.Debugf("deck %s: entering section %s", p.src, kw)
			continue
		}
		if p.section < 0 {
			return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: "content before RUNSPEC section"}
		}

		if p.inSection("SUMMARY") && isSummaryMnemonic(kw) {
			if err := p.handleSummary(kw, l, rest); err != nil {
				return err
			}
			continue
		}

		wantSection, known := keywordSection[kw]
		if !known {
			p.skipUnknown(kw, l)
			continue
		}
		if wantSection != sectionOrder[p.section] {
			return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw,
				Msg: fmt.Sprintf("keyword belongs in %s section, found in %s", wantSection, sectionOrder[p.section])}
		}
		if err := p.dispatch(kw, l, rest); err != nil {
			return err
		}
	}

	if p.section != len(sectionOrder)-1 {
		return &sim.ParseError{Source: p.src, Line: p.sc.lastLine(),
			Msg: fmt.Sprintf("deck ends before %s section", expectedSection(p.section))}
	}
	p.crossCheckPhases()
	return nil
}

func sectionIndex(kw string) int {
	for i, s := range sectionOrder {
		if s == kw {
			return i
		}
	}
	return -1
}

func expectedSection(current int) string {
	if current+1 < len(sectionOrder) {
		return sectionOrder[current+1]
	}
	return "end of deck"
}

func (p *parser) inSection(name string) bool {
	return p.section >= 0 && sectionOrder[p.section] == name
}

// isSummaryMnemonic matches output-vector declarations: a field (F...) or
// well (W...) mnemonic of 2-8 upper-case characters.
func isSummaryMnemonic(kw string) bool {
	if len(kw) < 2 || len(kw) > 8 {
		return false
	}
	if kw[0] != 'F' && kw[0] != 'W' {
		return false
	}
	for _, c := range kw {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// skipUnknown consumes the data of an unrecognized keyword: lines up to a
// slash terminator, stopping early (without consuming) at anything that
// looks like the next keyword. Non-fatal by design.
func (p *parser) skipUnknown(kw string, l *line) {
	p.warnf("line %d: skipping unrecognized keyword %s", l.num, kw)
	for {
		next := p.sc.peek()
		if next == nil {
			return
		}
		if looksLikeKeyword(next.text) {
			return
		}
		p.sc.next()
		if next.text == "/" || strings.HasSuffix(next.text, "/") {
			return
		}
	}
}

func looksLikeKeyword(text string) bool {
	first := strings.Fields(text)[0]
	if first[0] < 'A' || first[0] > 'Z' {
		return false
	}
	if _, ok := keywordSection[first]; ok {
		return true
	}
	return sectionIndex(first) >= 0 || isSummaryMnemonic(first)
}

func (p *parser) dispatch(kw string, l *line, rest []string) error {
	switch kw {
	case "TITLE":
		title := p.sc.next()
		if title == nil {
			return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: "missing title text"}
		}
		p.req.Title = title.text
	case "DIMENS":
		return p.handleDimens(kw, l, rest)
	case "OIL":
		p.phaseFlags[sim.PhaseOil] = true
	case "WATER":
		p.phaseFlags[sim.PhaseWater] = true
	case "GAS":
		p.phaseFlags[sim.PhaseGas] = true
	case "METRIC":
		// Metric units are the model's native convention.
	case "FIELD":
		p.warnf("line %d: FIELD units declared; values are read without conversion", l.num)
	case "DX", "DY", "DZ":
		return p.handleCellSize(kw, l, rest)
	case "TOPS":
		return p.handleTops(kw, l, rest)
	case "PORO", "PERMX", "PERMY", "PERMZ":
		return p.handleCellArray(kw, l, rest)
	case "PVDO":
		return p.handlePVTTable(kw, l, rest, sim.PhaseOil)
	case "PVDG":
		return p.handlePVTTable(kw, l, rest, sim.PhaseGas)
	case "PVTW":
		return p.handlePVTW(kw, l, rest)
	case "DENSITY":
		return p.handleDensity(kw, l, rest)
	case "SWOF":
		return p.handleRelPerm(kw, l, rest, sim.SatOilWater)
	case "SGOF":
		return p.handleRelPerm(kw, l, rest, sim.SatGasOil)
	case "EQUIL":
		return p.handleEquil(kw, l, rest)
	case "WELSPECS":
		return p.handleWelspecs(kw, l)
	case "COMPDAT":
		return p.handleCompdat(kw, l)
	case "WCONPROD":
		return p.handleWconprod(kw, l)
	case "WCONINJE":
		return p.handleWconinje(kw, l)
	case "TSTEP":
		return p.handleTstep(kw, l, rest)
	}
	return nil
}

func (p *parser) handleDimens(kw string, l *line, rest []string) error {
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return err
	}
	if len(toks) != 3 {
		return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: fmt.Sprintf("expected 3 values, got %d", len(toks))}
	}
	for i, dst := range []*int{&p.req.Grid.NX, &p.req.Grid.NY, &p.req.Grid.NZ} {
		v, err := parseInt(p.src, kw, toks[i])
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// readSizedArray reads a per-cell array record and enforces the size rule:
// the expanded token count must equal want or the parse fails naming the
// keyword and its line.
func (p *parser) readSizedArray(kw string, l *line, rest []string, want int) ([]float64, error) {
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return nil, err
	}
	if len(toks) != want {
		return nil, &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw,
			Msg: fmt.Sprintf("expected %d values, got %d", want, len(toks))}
	}
	return parseFloats(p.src, kw, toks)
}

func (p *parser) handleCellSize(kw string, l *line, rest []string) error {
	vals, err := p.readSizedArray(kw, l, rest, p.req.Grid.NumCells())
	if err != nil {
		return err
	}
	uniform, err := p.uniformValue(kw, l, vals)
	if err != nil {
		return err
	}
	switch kw {
	case "DX":
		p.req.Grid.DX = uniform
	case "DY":
		p.req.Grid.DY = uniform
	case "DZ":
		p.req.Grid.DZ = uniform
	}
	return nil
}

func (p *parser) handleTops(kw string, l *line, rest []string) error {
	want := p.req.Grid.NX * p.req.Grid.NY
	vals, err := p.readSizedArray(kw, l, rest, want)
	if err != nil {
		return err
	}
	uniform, err := p.uniformValue(kw, l, vals)
	if err != nil {
		return err
	}
	p.req.Grid.Tops = uniform
	return nil
}

// uniformValue enforces the regular-grid restriction: cell size and top
// arrays must hold a single repeated value.
func (p *parser) uniformValue(kw string, l *line, vals []float64) (float64, error) {
	for _, v := range vals[1:] {
		if v != vals[0] {
			return 0, &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: "non-uniform values are not supported"}
		}
	}
	return vals[0], nil
}

func (p *parser) handleCellArray(kw string, l *line, rest []string) error {
	vals, err := p.readSizedArray(kw, l, rest, p.req.Grid.NumCells())
	if err != nil {
		return err
	}
	switch kw {
	case "PORO":
		p.req.Rock.Porosity = vals
	case "PERMX":
		p.req.Rock.PermX = vals
	case "PERMY":
		p.req.Rock.PermY = vals
	case "PERMZ":
		p.req.Rock.PermZ = vals
	}
	return nil
}

func (p *parser) readColumns(kw string, l *line, rest []string, cols int) ([][]float64, error) {
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 || len(toks)%cols != 0 {
		return nil, &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw,
			Msg: fmt.Sprintf("expected rows of %d values, got %d values", cols, len(toks))}
	}
	vals, err := parseFloats(p.src, kw, toks)
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, 0, len(vals)/cols)
	for i := 0; i < len(vals); i += cols {
		rows = append(rows, vals[i:i+cols])
	}
	return rows, nil
}

func (p *parser) handlePVTTable(kw string, l *line, rest []string, phase sim.Phase) error {
	rows, err := p.readColumns(kw, l, rest, 3)
	if err != nil {
		return err
	}
	table := sim.PVTTable{Phase: phase}
	for _, row := range rows {
		table.Rows = append(table.Rows, sim.PVTRow{Pressure: row[0], FVF: row[1], Viscosity: row[2]})
	}
	p.req.PVT = append(p.req.PVT, table)
	return nil
}

// handlePVTW reads the single-record water table: Pref Bw [Cw] Visc. The
// compressibility column is accepted and discarded; the model carries only
// pressure, FVF and viscosity.
func (p *parser) handlePVTW(kw string, l *line, rest []string) error {
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return err
	}
	if len(toks) < 3 {
		return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: fmt.Sprintf("expected at least 3 values, got %d", len(toks))}
	}
	vals, err := parseFloats(p.src, kw, toks)
	if err != nil {
		return err
	}
	visc := vals[2]
	if len(vals) >= 4 {
		visc = vals[3]
	}
	p.req.PVT = append(p.req.PVT, sim.PVTTable{
		Phase: sim.PhaseWater,
		Rows:  []sim.PVTRow{{Pressure: vals[0], FVF: vals[1], Viscosity: visc}},
	})
	return nil
}

func (p *parser) handleDensity(kw string, l *line, rest []string) error {
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return err
	}
	if len(toks) != 3 {
		return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: fmt.Sprintf("expected 3 values, got %d", len(toks))}
	}
	vals, err := parseFloats(p.src, kw, toks)
	if err != nil {
		return err
	}
	p.req.Density = sim.Densities{Oil: vals[0], Water: vals[1], Gas: vals[2]}
	return nil
}

func (p *parser) handleRelPerm(kw string, l *line, rest []string, system sim.SatSystem) error {
	rows, err := p.readColumns(kw, l, rest, 4)
	if err != nil {
		return err
	}
	table := sim.RelPermTable{System: system}
	for _, row := range rows {
		table.Rows = append(table.Rows, sim.RelPermRow{Saturation: row[0], KrA: row[1], KrB: row[2], Pc: row[3]})
	}
	p.req.RelPerm = append(p.req.RelPerm, table)
	return nil
}

// handleEquil reads the equilibration record: datum, datum pressure, OWC,
// Pcow, GOC, Pcgo. Capillary pressures at the contacts are accepted and
// discarded; trailing items may be omitted.
func (p *parser) handleEquil(kw string, l *line, rest []string) error {
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return err
	}
	if len(toks) < 2 {
		return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: fmt.Sprintf("expected at least 2 values, got %d", len(toks))}
	}
	vals, err := parseFloats(p.src, kw, toks)
	if err != nil {
		return err
	}
	p.req.Equil.Datum = vals[0]
	p.req.Equil.DatumPressure = vals[1]
	if len(vals) > 2 {
		p.req.Equil.OWC = vals[2]
	}
	if len(vals) > 4 {
		p.req.Equil.GOC = vals[4]
	}
	return nil
}

func (p *parser) handleSummary(kw string, l *line, rest []string) error {
	if kw[0] == 'F' {
		p.req.Summary = append(p.req.Summary, kw)
		return nil
	}
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		p.warnf("line %d: %s with empty well list ignored", l.num, kw)
		return nil
	}
	for _, t := range toks {
		p.req.Summary = append(p.req.Summary, kw+":"+unquote(t.val))
	}
	return nil
}

// readWellRecords reads the slash-terminated records of a multi-record
// keyword; the keyword block itself ends at a line holding only a slash.
func (p *parser) readWellRecords(kw string, l *line) ([][]tok, error) {
	var records [][]tok
	for {
		next := p.sc.peek()
		if next == nil {
			return nil, &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: "unterminated keyword (missing closing /)"}
		}
		if next.text == "/" {
			p.sc.next()
			return records, nil
		}
		p.sc.next()
		rec, err := p.sc.readRecord(kw, next.num, strings.Fields(next.text))
		if err != nil {
			return nil, err
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
}

func (p *parser) handleWelspecs(kw string, l *line) error {
	records, err := p.readWellRecords(kw, l)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec) < 6 {
			return &sim.ParseError{Source: p.src, Line: rec[0].line, Keyword: kw, Msg: fmt.Sprintf("expected 6 items, got %d", len(rec))}
		}
		name := unquote(rec[0].val)
		i, err := parseInt(p.src, kw, rec[2])
		if err != nil {
			return err
		}
		j, err := parseInt(p.src, kw, rec[3])
		if err != nil {
			return err
		}
		p.req.Wells = append(p.req.Wells, sim.Well{
			Name:  name,
			I:     i,
			J:     j,
			Phase: sim.Phase(unquote(rec[5].val)),
		})
	}
	return nil
}

// lookupWell resolves a well-operation reference, enforcing the
// declaration-before-use rule.
func (p *parser) lookupWell(kw string, t tok) (*sim.Well, error) {
	name := unquote(t.val)
	if w := p.req.FindWell(name); w != nil {
		return w, nil
	}
	return nil, &sim.ParseError{Source: p.src, Line: t.line, Keyword: kw,
		Msg: fmt.Sprintf("well %s referenced before its WELSPECS declaration", name)}
}

func (p *parser) handleCompdat(kw string, l *line) error {
	records, err := p.readWellRecords(kw, l)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec) < 5 {
			return &sim.ParseError{Source: p.src, Line: rec[0].line, Keyword: kw, Msg: fmt.Sprintf("expected at least 5 items, got %d", len(rec))}
		}
		w, err := p.lookupWell(kw, rec[0])
		if err != nil {
			return err
		}
		k1, err := parseInt(p.src, kw, rec[3])
		if err != nil {
			return err
		}
		k2, err := parseInt(p.src, kw, rec[4])
		if err != nil {
			return err
		}
		w.K1, w.K2 = k1, k2
	}
	return nil
}

// applyControl routes a control record: the first control seen for a well
// becomes its initial control, later ones become schedule entries.
func (p *parser) applyControl(w *sim.Well, producer bool, mode sim.ControlMode, target float64) {
	if !p.controlled[w.Name] {
		p.controlled[w.Name] = true
		w.Producer = producer
		w.Mode = mode
		w.Target = target
		return
	}
	p.req.Schedule = append(p.req.Schedule, sim.ScheduleEntry{
		Control: &sim.WellControl{Well: w.Name, Mode: mode, Target: target},
	})
}

func (p *parser) handleWconprod(kw string, l *line) error {
	records, err := p.readWellRecords(kw, l)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec) < 4 {
			return &sim.ParseError{Source: p.src, Line: rec[0].line, Keyword: kw, Msg: fmt.Sprintf("expected 4 items, got %d", len(rec))}
		}
		w, err := p.lookupWell(kw, rec[0])
		if err != nil {
			return err
		}
		target, err := parseFloats(p.src, kw, rec[3:4])
		if err != nil {
			return err
		}
		p.applyControl(w, true, sim.ControlMode(unquote(rec[2].val)), target[0])
	}
	return nil
}

func (p *parser) handleWconinje(kw string, l *line) error {
	records, err := p.readWellRecords(kw, l)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if len(rec) < 5 {
			return &sim.ParseError{Source: p.src, Line: rec[0].line, Keyword: kw, Msg: fmt.Sprintf("expected 5 items, got %d", len(rec))}
		}
		w, err := p.lookupWell(kw, rec[0])
		if err != nil {
			return err
		}
		target, err := parseFloats(p.src, kw, rec[4:5])
		if err != nil {
			return err
		}
		p.applyControl(w, false, sim.ControlMode(unquote(rec[3].val)), target[0])
	}
	return nil
}

func (p *parser) handleTstep(kw string, l *line, rest []string) error {
	toks, err := p.sc.readRecord(kw, l.num, rest)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return &sim.ParseError{Source: p.src, Line: l.num, Keyword: kw, Msg: "empty time step list"}
	}
	steps, err := parseFloats(p.src, kw, toks)
	if err != nil {
		return err
	}
	p.req.Schedule = append(p.req.Schedule, sim.ScheduleEntry{Advance: steps})
	return nil
}

// crossCheckPhases warns when RUNSPEC phase flags and PROPS tables
// disagree; the PVT tables are authoritative for the model.
func (p *parser) crossCheckPhases() {
	have := make(map[sim.Phase]bool)
	for _, t := range p.req.PVT {
		have[t.Phase] = true
	}
	for phase := range p.phaseFlags {
		if !have[phase] {
			p.warnf("phase %s declared in RUNSPEC but has no PVT table", phase)
		}
	}
	for phase := range have {
		if !p.phaseFlags[phase] {
			p.warnf("PVT table for %s present but phase not declared in RUNSPEC", phase)
		}
	}
}
