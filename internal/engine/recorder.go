package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/siftlabs/sift/internal/ident"
	"github.com/siftlabs/sift/internal/store"
)

// PhaseResult is the outcome of one phase of a test's lifecycle (setup,
// call, teardown) as reported by the host runner.
type PhaseResult struct {
	Phase    string
	Failed   bool
	Duration float64 // seconds
}

// Aggregate folds a test's phase results into the recorded outcome: failed
// if any phase failed, duration summed across all phases.
func Aggregate(phases []PhaseResult) (failed bool, duration float64) {
	for _, p := range phases {
		failed = failed || p.Failed
		duration += p.Duration
	}
	return failed, duration
}

// Recorder commits per-test results to the store, one atomic upsert per
// node at completion of that node's full lifecycle.
type Recorder struct {
	store  *store.Store
	logger *slog.Logger

	// disabled suppresses all writes (the no-collect mode); selection
	// still works off the previous run's data.
	disabled bool

	skipped int
}

// NewRecorder creates a Recorder. A nil logger discards log output.
func NewRecorder(st *store.Store, logger *slog.Logger, disabled bool) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{store: st, logger: logger, disabled: disabled}
}

// Record atomically replaces the persisted fingerprint, outcome, and
// duration for one node.
//
// A storage failure here only costs performance - the node is unknown next
// run and will simply re-run - so it is absorbed: logged, counted, and not
// propagated. Correctness-compromising failures surface when the database
// is opened, not here.
func (r *Recorder) Record(ctx context.Context, id ident.NodeID, fp ident.Fingerprint, failed bool, duration float64) {
	if r.disabled {
		return
	}

	rec := ident.NodeRecord{
		ID:          id,
		Failed:      failed,
		Duration:    duration,
		Fingerprint: fp.Normalize(),
	}
	if err := r.store.UpsertNode(ctx, rec); err != nil {
		r.skipped++
		commitErr := &EngineError{Code: ErrCodeCommitFailed, Message: "node commit skipped", Node: id.String(), Err: err}
		r.logger.Warn("commit skipped, node re-runs next time", "node", id.String(), "error", commitErr)
	}
}

// SkippedCommits reports how many commits were absorbed as best-effort
// skips this run.
func (r *Recorder) SkippedCommits() int {
	return r.skipped
}
