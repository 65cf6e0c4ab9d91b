// Package harness provides a conformance harness for the selection
// protocol.
//
// A scenario is a YAML file describing a working tree, a scripted test
// suite with known per-test dependencies, and a sequence of runs against a
// shared database. Between runs the scenario edits the tree the way a
// developer would, and each run's selection outcome is checked against the
// scenario's expectations and optionally against a golden trace file.
//
// Tests are not really executed: a scripted host replays outcomes and a
// scripted tracer replays fingerprints computed from the tree as it stands
// at run time. What the harness exercises is everything between those two
// fakes: stability determination, selection, ordering, recording, and
// reconciliation against a real SQLite database.
package harness
