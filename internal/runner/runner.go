// Package runner defines the boundary to the host test runner. The engine
// consumes lifecycle notifications from the host and hands back a
// deselected/ordered item list; everything else about the host is out of
// scope.
package runner

import (
	"context"

	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/ident"
)

// Host is what sift needs from a test runner.
type Host interface {
	// Collect discovers the full test set, in collection order.
	Collect(ctx context.Context) ([]ident.NodeID, error)

	// Run executes one test through its full lifecycle and reports the
	// per-phase results. When profilePath is non-empty the host writes a
	// cover profile there for the tracing collaborator to consume.
	Run(ctx context.Context, node ident.NodeID, profilePath string) ([]engine.PhaseResult, error)
}
