package ident

import "sort"

// FileChecksum is one fingerprint entry: a file the test's execution touched,
// at the content checksum it had when the test ran.
type FileChecksum struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// Fingerprint is the set of files a test depends on. A zero-length
// fingerprint is valid: the test touched no trackable code and is trivially
// stable.
type Fingerprint []FileChecksum

// Normalize returns a sorted, de-duplicated copy. Fingerprints are sets;
// normalizing before persistence keeps commits deterministic.
func (fp Fingerprint) Normalize() Fingerprint {
	out := make(Fingerprint, 0, len(fp))
	seen := make(map[FileChecksum]struct{}, len(fp))
	for _, fc := range fp {
		if _, dup := seen[fc]; dup {
			continue
		}
		seen[fc] = struct{}{}
		out = append(out, fc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Checksum < out[j].Checksum
	})
	return out
}

// Paths returns the distinct file paths referenced by the fingerprint.
func (fp Fingerprint) Paths() []string {
	seen := make(map[string]struct{}, len(fp))
	var paths []string
	for _, fc := range fp {
		if _, dup := seen[fc.Path]; dup {
			continue
		}
		seen[fc.Path] = struct{}{}
		paths = append(paths, fc.Path)
	}
	sort.Strings(paths)
	return paths
}

// NodeRecord is the persisted view of one test: its identity, last outcome,
// last duration, and fingerprint.
type NodeRecord struct {
	ID          NodeID
	Failed      bool
	Duration    float64 // seconds, summed across all phases of the last run
	Fingerprint Fingerprint
}
