package sim

import "context"

// ProgressFunc receives completion fractions in [0,1]. Backends invoke it
// zero or more times during Run with monotonically non-decreasing values.
type ProgressFunc func(fraction float64)

// Info describes a backend for discovery. Returning it must not run a
// simulation.
type Info struct {
	Name        string // registry name, e.g. "opm"
	Engine      string // human-readable engine name, e.g. "OPM Flow"
	Version     string // engine version if known, else empty
	Description string
}

// Simulator is the three-phase contract every backend implements.
//
// Lifecycle: Validate any number of times (side-effect free), then Run once
// per working directory, then ParseResult after a successful Run. Callers
// must obtain an empty problem list from Validate before invoking Run; Run
// does not re-validate, so skipping Validate is a caller bug. Concurrent
// Runs of different requests are safe provided each gets its own working
// directory.
type Simulator interface {
	// Validate checks the request against this backend's capabilities and
	// returns human-readable problems. Empty means the request may run.
	Validate(req *SimulationRequest) []string

	// Run generates the backend-native input inside workdir, launches the
	// external engine there and blocks until it finishes. progress may be
	// nil. Cancelling ctx terminates the engine process; Run then returns
	// an error wrapping ctx.Err(). Engine failures are returned as
	// *ExecutionError.
	Run(ctx context.Context, req *SimulationRequest, workdir string, progress ProgressFunc) error

	// ParseResult reads the native output artifacts from workdir and
	// translates them into a UnifiedResult. Only valid after Run returned
	// nil for the same workdir.
	ParseResult(workdir string, req *SimulationRequest) (*UnifiedResult, error)

	// Healthy reports whether the backend's external engine is usable.
	Healthy() bool

	// Info returns backend metadata.
	Info() Info
}
