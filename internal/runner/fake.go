package runner

import (
	"context"
	"fmt"

	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/ident"
)

// FakeHost replays a scripted collection and scripted per-test results.
// Used by session tests and the harness.
type FakeHost struct {
	Collected []ident.NodeID

	// Results maps node id to its phase results. A node absent from the
	// map passes with a single fast call phase.
	Results map[string][]engine.PhaseResult

	// ErrFor lists node ids whose execution errors at the host level
	// (unrecoverable, before teardown completes).
	ErrFor map[string]struct{}

	// Ran accumulates the node ids actually executed, in order.
	Ran []string
}

// Collect returns the scripted collection.
func (h *FakeHost) Collect(ctx context.Context) ([]ident.NodeID, error) {
	return append([]ident.NodeID(nil), h.Collected...), nil
}

// Run replays the scripted result for one test.
func (h *FakeHost) Run(ctx context.Context, node ident.NodeID, profilePath string) ([]engine.PhaseResult, error) {
	name := node.String()
	h.Ran = append(h.Ran, name)
	if _, bad := h.ErrFor[name]; bad {
		return nil, fmt.Errorf("run %s: scripted host error", name)
	}
	if phases, ok := h.Results[name]; ok {
		return phases, nil
	}
	return []engine.PhaseResult{{Phase: "call", Duration: 0.01}}, nil
}
