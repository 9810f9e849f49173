package sim

import "strings"

// Vector is a single named time series: elapsed time in days against values
// in the vector's natural unit. Times and Values always have equal length.
type Vector struct {
	Times  []float64
	Values []float64
}

// Len returns the number of points in the vector.
func (v Vector) Len() int { return len(v.Times) }

// Convergence records how the external engine's numerical solution behaved.
// Completed=false with a FailureReason is a flagged condition, not an error:
// the partial series remain available for diagnosis.
type Convergence struct {
	Completed     bool
	TimestepCuts  int
	FailureReason string
	Warnings      []string
}

// UnifiedResult is the single output shape every backend must produce.
// Field holds field-level vectors keyed by mnemonic ("FOPR"); Well holds
// well-level vectors keyed "MNEMONIC:WELLNAME" ("WBHP:PROD"). Extra is an
// open extension mapping for backend-specific data with no place in the
// common schema.
//
// A UnifiedResult is produced exactly once, by a backend's parse phase, and
// is never retroactively edited.
type UnifiedResult struct {
	Field       map[string]Vector
	Well        map[string]Vector
	Convergence Convergence
	Extra       map[string]string
}

// NewUnifiedResult returns an empty result with initialized maps and the
// convergence record marked complete.
func NewUnifiedResult() *UnifiedResult {
	return &UnifiedResult{
		Field:       make(map[string]Vector),
		Well:        make(map[string]Vector),
		Convergence: Convergence{Completed: true},
		Extra:       make(map[string]string),
	}
}

// Vectors returns a merged view of field- and well-level vectors keyed by
// their canonical names. The returned map shares the underlying series.
func (r *UnifiedResult) Vectors() map[string]Vector {
	merged := make(map[string]Vector, len(r.Field)+len(r.Well))
	for name, v := range r.Field {
		merged[name] = v
	}
	for name, v := range r.Well {
		merged[name] = v
	}
	return merged
}

// IsWellVector reports whether a canonical vector name addresses a single
// well ("WBHP:PROD") rather than the whole field ("FOPR").
func IsWellVector(name string) bool {
	return strings.Contains(name, ":")
}
