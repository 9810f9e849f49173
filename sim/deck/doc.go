// Package deck parses and generates reservoir simulation input decks.
//
// The deck format is the de-facto industry one: six strictly ordered
// sections (RUNSPEC, GRID, PROPS, SOLUTION, SUMMARY, SCHEDULE), each a
// sequence of upper-case keyword records terminated by a slash, with "--"
// comments and an N*value repetition shorthand. Parse turns deck text into
// a sim.SimulationRequest; Generate is its deterministic inverse.
// Generated decks stay readable by the external engines unmodified.
package deck
