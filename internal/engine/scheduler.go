package engine

import (
	"sort"

	"github.com/siftlabs/sift/internal/ident"
)

// DurationTable holds historical average durations at the three grouping
// levels the scheduler orders by. Unknown keys average to zero, which sorts
// new tests first.
type DurationTable struct {
	node   map[string]float64
	class  map[string]float64
	module map[string]float64
}

// BuildDurations computes per-node, per-class, and per-module average
// durations from the persisted records. The class average of a classless
// node is its module average (ident.NodeID.ClassKey falls back).
func BuildDurations(records []ident.NodeRecord) DurationTable {
	type acc struct {
		total float64
		count int
	}
	nodes := make(map[string]acc)
	classes := make(map[string]acc)
	modules := make(map[string]acc)

	for _, rec := range records {
		name := rec.ID.String()
		nodes[name] = acc{nodes[name].total + rec.Duration, nodes[name].count + 1}
		ck := rec.ID.ClassKey()
		classes[ck] = acc{classes[ck].total + rec.Duration, classes[ck].count + 1}
		mk := rec.ID.ModuleKey()
		modules[mk] = acc{modules[mk].total + rec.Duration, modules[mk].count + 1}
	}

	avg := func(in map[string]acc) map[string]float64 {
		out := make(map[string]float64, len(in))
		for k, a := range in {
			out[k] = a.total / float64(a.count)
		}
		return out
	}

	return DurationTable{node: avg(nodes), class: avg(classes), module: avg(modules)}
}

// sortKey is the explicit composite ordering key: coarsest level first,
// compared lexicographically. Equivalent to three successive stable sorts
// by node, class, then module average, but in a single verifiable pass.
type sortKey struct {
	moduleAvg float64
	classAvg  float64
	nodeAvg   float64
}

func (k sortKey) less(o sortKey) bool {
	if k.moduleAvg != o.moduleAvg {
		return k.moduleAvg < o.moduleAvg
	}
	if k.classAvg != o.classAvg {
		return k.classAvg < o.classAvg
	}
	return k.nodeAvg < o.nodeAvg
}

// Order sorts the ids so the historically fastest modules run first, then
// the fastest classes within a module, then the fastest tests within a
// class. Ties keep collection order (the sort is stable), which makes the
// output byte-identical across runs with identical inputs.
//
// The input slice is not modified.
func Order(ids []ident.NodeID, durations DurationTable) []ident.NodeID {
	out := make([]ident.NodeID, len(ids))
	copy(out, ids)

	keys := make([]sortKey, len(out))
	for i, id := range out {
		keys[i] = sortKey{
			moduleAvg: durations.module[id.ModuleKey()],
			classAvg:  durations.class[id.ClassKey()],
			nodeAvg:   durations.node[id.String()],
		}
	}

	// Indirect sort so keys move with their ids.
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].less(keys[idx[b]])
	})

	ordered := make([]ident.NodeID, len(out))
	for i, j := range idx {
		ordered[i] = out[j]
	}
	return ordered
}
