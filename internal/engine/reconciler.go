package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/siftlabs/sift/internal/store"
)

// Reconciler synchronizes the persisted set of known nodes with the set
// actually collected this run.
type Reconciler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. A nil logger discards log output.
func NewReconciler(st *store.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{store: st, logger: logger}
}

// Sync removes persisted nodes whose id is not in retained. It runs once,
// early, before any test executes.
//
// partialRun guards against over-pruning: when the current invocation is a
// narrowed rerun (a filtered collection, or a run that already saw
// failures), the retained set does not represent the full suite, so
// pruning from it would delete unrelated tests' records. In that case Sync
// is a no-op. This guard is a heuristic, not a strict guarantee: a
// multi-phase rerun that looks complete can still under-prune.
func (c *Reconciler) Sync(ctx context.Context, retained map[string]struct{}, partialRun bool) (removed int, err error) {
	if partialRun {
		c.logger.Debug("reconciliation skipped, run appears partial")
		return 0, nil
	}

	nodes, err := c.store.AllNodes(ctx)
	if err != nil {
		return 0, &EngineError{Code: ErrCodeDBUnreadable, Message: "reading nodes for reconciliation", Err: err}
	}

	var stale []string
	for _, node := range nodes {
		name := node.ID.String()
		if _, ok := retained[name]; !ok {
			stale = append(stale, name)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := c.store.DeleteNodes(ctx, stale); err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}
	c.logger.Debug("pruned stale nodes", "count", len(stale))
	return len(stale), nil
}

// Collect garbage-collects checksum entries no longer referenced by any
// fingerprint. It runs once at the very end of a run and only in the
// coordinator process; a worker running it could race another worker's
// in-flight commit.
func (c *Reconciler) Collect(ctx context.Context, worker bool) error {
	if worker {
		return nil
	}
	if err := c.store.RemoveUnusedFingerprints(ctx); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return nil
}
