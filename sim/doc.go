// Package sim provides the backend-agnostic core of resbridge: the shared
// data model, request validation, the adapter registry, and the simulator
// backend contract.
//
// # Reading Guide
//
// Start with these three files to understand the adapter layer:
//   - request.go: SimulationRequest, the canonical case description every backend consumes
//   - result.go: UnifiedResult, the single output shape every backend must produce
//   - adapter.go: the Simulator contract (validate / run / parse) and backend metadata
//
// # Architecture
//
// The sim package defines interfaces and shared types; implementations live in
// sub-packages:
//   - sim/deck/: industry deck text parser and generator
//   - sim/output/: readers for simulator-native result artifacts
//   - sim/compare/: statistical equivalence engine over UnifiedResults
//   - sim/backends/opm/: backend driving OPM Flow
//   - sim/backends/mrst/: backend driving Octave/MRST
//
// Backends are handed to a Registry by calling code at startup; nothing is
// registered implicitly. Run orchestration is exposed as a cancellable task
// via Launch (task.go) on top of the blocking Simulator.Run, with external
// processes driven through ExecRunner (exec.go).
package sim
