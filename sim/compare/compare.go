// Package compare statistically checks two unified results for equivalence.
//
// For each vector present in both results the engine aligns the time grids
// (linear interpolation of the sparser series onto the denser one; this is
// a deliberate policy, since silent misalignment is the most likely source
// of false mismatch reports), computes MAE, range-normalized RMSE and R²
// against the reference, and judges them against per-class thresholds.
package compare

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/resbridge/resbridge/sim"
)

// VectorReport holds the equivalence metrics for one shared vector. NRMSE
// is the root-mean-square error normalized by the reference vector's value
// range; R2 the coefficient of determination against the reference.
type VectorReport struct {
	MAE    float64 `yaml:"mae"`
	NRMSE  float64 `yaml:"nrmse"`
	R2     float64 `yaml:"r2"`
	Points int     `yaml:"points"`
	Pass   bool    `yaml:"pass"`
}

// Report is the comparison outcome. Vectors present in only one result are
// flagged in OnlyInA/OnlyInB rather than silently dropped; Pass is true iff
// every shared vector passes (and, when the config demands it, both results
// carry the same vectors).
type Report struct {
	Vectors map[string]VectorReport `yaml:"vectors"`
	OnlyInA []string                `yaml:"only_in_a,omitempty"`
	OnlyInB []string                `yaml:"only_in_b,omitempty"`
	Pass    bool                    `yaml:"pass"`
}

// Compare evaluates b against the reference result a. The reference side
// supplies the value range for NRMSE and the truth series for R².
// Comparing a result against itself yields MAE=0, NRMSE=0 and R²=1 for
// every vector, exactly.
func Compare(a, b *sim.UnifiedResult, cfg Config) *Report {
	report := &Report{Vectors: make(map[string]VectorReport), Pass: true}

	va, vb := a.Vectors(), b.Vectors()
	for _, name := range sortedNames(va) {
		other, ok := vb[name]
		if !ok {
			report.OnlyInA = append(report.OnlyInA, name)
			continue
		}
		vr := compareVector(name, va[name], other, cfg.thresholdsFor(name))
		report.Vectors[name] = vr
		if !vr.Pass {
			report.Pass = false
		}
	}
	for _, name := range sortedNames(vb) {
		if _, ok := va[name]; !ok {
			report.OnlyInB = append(report.OnlyInB, name)
		}
	}

	if cfg.RequireSameVectors && (len(report.OnlyInA) > 0 || len(report.OnlyInB) > 0) {
		report.Pass = false
	}
	if len(report.OnlyInA)+len(report.OnlyInB) > 0 {
		logrus.Warnf("compare: %d vectors present in only one result", len(report.OnlyInA)+len(report.OnlyInB))
	}
	return report
}

func sortedNames(vectors map[string]sim.Vector) []string {
	names := make([]string, 0, len(vectors))
	for name := range vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func compareVector(name string, ref, est sim.Vector, t Thresholds) VectorReport {
	refVals, estVals := align(ref, est)
	vr := VectorReport{Points: len(refVals)}
	if len(refVals) == 0 {
		// No overlapping time window; nothing comparable.
		vr.MAE, vr.NRMSE, vr.R2 = math.NaN(), math.NaN(), math.NaN()
		logrus.Warnf("compare: vector %s has no overlapping time points", name)
		return vr
	}

	sumAbs, sumSq := 0.0, 0.0
	lo, hi := refVals[0], refVals[0]
	for i := range refVals {
		d := refVals[i] - estVals[i]
		sumAbs += math.Abs(d)
		sumSq += d * d
		lo = math.Min(lo, refVals[i])
		hi = math.Max(hi, refVals[i])
	}
	n := float64(len(refVals))
	vr.MAE = sumAbs / n
	rmse := math.Sqrt(sumSq / n)

	switch {
	case hi > lo:
		vr.NRMSE = rmse / (hi - lo)
		vr.R2 = stat.RSquaredFrom(estVals, refVals, nil)
	case rmse == 0:
		// Constant reference matched exactly; R² is 1 by convention here
		// rather than the 0/0 the formula would produce.
		vr.NRMSE = 0
		vr.R2 = 1
	default:
		vr.NRMSE = math.Inf(1)
		vr.R2 = 0
	}

	vr.Pass = t.check(vr)
	return vr
}

// align puts both series on a common time grid. Identical grids are
// compared point-for-point with no interpolation, so self-comparison is
// bitwise exact. Otherwise the sparser series is linearly interpolated onto
// the denser series' timestamps, restricted to the overlapping window.
func align(ref, est sim.Vector) (refVals, estVals []float64) {
	if sameGrid(ref.Times, est.Times) {
		return ref.Values, est.Values
	}

	dense, sparse := ref, est
	denseIsRef := true
	if len(est.Times) > len(ref.Times) {
		dense, sparse = est, ref
		denseIsRef = false
	}
	if len(sparse.Times) < 2 || len(dense.Times) == 0 {
		return nil, nil
	}
	// PiecewiseLinear.Fit panics on repeated or decreasing xs rather than
	// returning an error, so non-monotone grids must be rejected up front.
	// Readers pass artifact time columns through unchecked.
	if !strictlyIncreasing(sparse.Times) || !strictlyIncreasing(dense.Times) {
		logrus.Warnf("compare: non-monotone time grid; series cannot be aligned")
		return nil, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(sparse.Times, sparse.Values); err != nil {
		logrus.Warnf("compare: cannot interpolate series: %v", err)
		return nil, nil
	}

	lo := math.Max(dense.Times[0], sparse.Times[0])
	hi := math.Min(dense.Times[len(dense.Times)-1], sparse.Times[len(sparse.Times)-1])
	for i, t := range dense.Times {
		if t < lo || t > hi {
			continue
		}
		onGrid := dense.Values[i]
		interpolated := pl.Predict(t)
		if denseIsRef {
			refVals = append(refVals, onGrid)
			estVals = append(estVals, interpolated)
		} else {
			refVals = append(refVals, interpolated)
			estVals = append(estVals, onGrid)
		}
	}
	return refVals, estVals
}

func strictlyIncreasing(times []float64) bool {
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return false
		}
	}
	return true
}

func sameGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
