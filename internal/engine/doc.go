// Package engine implements the incremental test-selection core:
// stability computation, selection, ordering, recording, and
// reconciliation.
//
// The engine holds no persistent state of its own. It reads checksums and
// fingerprints from the store at the start of a run, derives a stability
// view, and feeds selection and ordering from that view. All mutation goes
// back through the Recorder and Reconciler, which are the only writers the
// store ever sees.
//
// INVARIANTS:
//   - Stability is recomputed fresh each run from current file contents;
//     it is never persisted
//   - Selected and deselected sets partition the collected set exactly
//   - A node whose last outcome was a failure is never deselected
//   - A node referencing a file with no known checksum is unstable
package engine
