package engine

import (
	"sort"

	"github.com/gobwas/glob"

	"github.com/siftlabs/sift/internal/ident"
)

// Mode controls how selection is applied to the collected test set.
type Mode int

const (
	// ModeNormal selects unstable and previously-failing nodes and
	// deselects the rest.
	ModeNormal Mode = iota

	// ModeForceSelect applies selection and external name filters
	// conjunctively: a node runs only if it must run AND matches a filter.
	ModeForceSelect

	// ModeNoSelect selects everything; ordering still applies.
	ModeNoSelect
)

// Selection is the partition of one run's collected test set.
// Selected ∪ Deselected equals the collected set exactly, with no overlap,
// both preserving collection order.
type Selection struct {
	Selected   []ident.NodeID
	Deselected []ident.NodeID

	// DeselectedFiles lists files whose collection can be skipped entirely
	// because they are stable and contain no failing node. Advisory only;
	// correctness rests on the node-level partition.
	DeselectedFiles []string
}

// Select partitions the collected nodes into must-run and can-skip.
//
// A collected node with no persisted record is unknown and always selected.
// A node whose last recorded outcome was a failure is always selected,
// regardless of fingerprint stability. In ModeForceSelect, non-empty
// filters additionally gate selection by node name.
func Select(collected []ident.NodeID, records []ident.NodeRecord, stab *StabilityResult, mode Mode, filters []glob.Glob) Selection {
	known := make(map[string]ident.NodeRecord, len(records))
	failingFiles := make(map[string]struct{})
	for _, rec := range records {
		known[rec.ID.String()] = rec
		if rec.Failed {
			failingFiles[rec.ID.ModuleKey()] = struct{}{}
		}
	}

	var sel Selection
	for _, id := range collected {
		if mustRun(id, known, stab, mode, filters) {
			sel.Selected = append(sel.Selected, id)
		} else {
			sel.Deselected = append(sel.Deselected, id)
		}
	}

	if mode != ModeNoSelect {
		selectedFiles := make(map[string]struct{})
		for _, id := range sel.Selected {
			selectedFiles[id.ModuleKey()] = struct{}{}
		}
		for path := range stab.StableFiles {
			if _, failing := failingFiles[path]; failing {
				continue
			}
			if _, needed := selectedFiles[path]; needed {
				continue
			}
			sel.DeselectedFiles = append(sel.DeselectedFiles, path)
		}
		sort.Strings(sel.DeselectedFiles)
	}

	return sel
}

func mustRun(id ident.NodeID, known map[string]ident.NodeRecord, stab *StabilityResult, mode Mode, filters []glob.Glob) bool {
	if mode == ModeNoSelect {
		return true
	}

	name := id.String()
	affected := true
	if rec, ok := known[name]; ok {
		// Failing tests are always re-attempted; otherwise stability
		// decides.
		affected = rec.Failed || !stab.NodeStable(name)
	}

	if mode == ModeForceSelect && len(filters) > 0 {
		return affected && matchesAny(name, filters)
	}
	return affected
}

// Filter narrows ids to those matching any of the patterns. Filters always
// narrow the collection, whatever the selection mode; with no patterns the
// input is returned unchanged.
func Filter(ids []ident.NodeID, filters []glob.Glob) []ident.NodeID {
	if len(filters) == 0 {
		return ids
	}
	out := make([]ident.NodeID, 0, len(ids))
	for _, id := range ids {
		if matchesAny(id.String(), filters) {
			out = append(out, id)
		}
	}
	return out
}

func matchesAny(name string, filters []glob.Glob) bool {
	for _, g := range filters {
		if g.Match(name) {
			return true
		}
	}
	return false
}
