package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/siftlabs/sift/internal/ident"
	"github.com/siftlabs/sift/internal/store"
)

// StabilityResult is the derived stability view for one run. It is never
// persisted; only its inputs (checksums) are.
type StabilityResult struct {
	// StableFiles and UnstableFiles partition every real file path with a
	// recorded checksum. The library pseudo-file is excluded from both and
	// surfaced via LibrariesMiss instead.
	StableFiles   map[string]struct{}
	UnstableFiles map[string]struct{}

	// StableNodes and UnstableNodes partition every persisted node, keyed
	// by serialized node id.
	StableNodes   map[string]struct{}
	UnstableNodes map[string]struct{}

	// LibrariesMiss reports that the installed dependency set changed,
	// invalidating every node whose fingerprint references it.
	LibrariesMiss bool
}

// NodeStable reports whether the named node's entire fingerprint references
// only unchanged content.
func (r *StabilityResult) NodeStable(name string) bool {
	_, ok := r.StableNodes[name]
	return ok
}

// SortedUnstableFiles returns the unstable file paths in sorted order, for
// reporting.
func (r *StabilityResult) SortedUnstableFiles() []string {
	paths := make([]string, 0, len(r.UnstableFiles))
	for p := range r.UnstableFiles {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DetermineStable computes the stability view for this run: it recomputes
// the current content checksum of every file any fingerprint references,
// compares against the recorded checksums, and derives per-node stability.
//
// root is the project root; recorded paths are resolved relative to it.
// libraries is the installed dependency list used to recompute the library
// signature pseudo-file.
//
// The computation is deterministic and has no side effects beyond reading
// file contents.
func DetermineStable(ctx context.Context, st *store.Store, root string, libraries []string) (*StabilityResult, error) {
	recorded, err := st.RecordedChecksums(ctx)
	if err != nil {
		return nil, &EngineError{Code: ErrCodeDBUnreadable, Message: "reading recorded checksums", Err: err}
	}
	nodes, err := st.AllNodes(ctx)
	if err != nil {
		return nil, &EngineError{Code: ErrCodeDBUnreadable, Message: "reading nodes", Err: err}
	}

	current := make(map[string]string, len(recorded))
	for path := range recorded {
		if path == ident.LibrariesPath {
			current[path] = ident.LibrariesChecksum(libraries)
			continue
		}
		checksum, err := currentChecksum(root, path)
		if err != nil {
			return nil, fmt.Errorf("determine stable: %w", err)
		}
		if checksum != "" {
			current[path] = checksum
		}
	}

	return Partition(nodes, recorded, current), nil
}

// currentChecksum computes the content checksum of path under root. A file
// that no longer exists has no current checksum, which makes every
// fingerprint referencing it unstable.
func currentChecksum(root, path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, path))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return ident.ChecksumBytes(data), nil
}

// Partition derives the stability partition from its inputs alone.
//
// A file is stable iff exactly one checksum is recorded for it and that
// checksum equals the current one. A node is stable iff every entry of its
// fingerprint matches the current checksum of its file; an entry whose file
// has no current checksum (deleted, or never recorded) is a mismatch. A
// node with an empty fingerprint is stable by definition.
func Partition(nodes []ident.NodeRecord, recorded map[string][]string, current map[string]string) *StabilityResult {
	result := &StabilityResult{
		StableFiles:   make(map[string]struct{}),
		UnstableFiles: make(map[string]struct{}),
		StableNodes:   make(map[string]struct{}),
		UnstableNodes: make(map[string]struct{}),
	}

	for path, checksums := range recorded {
		stable := len(checksums) == 1 && checksums[0] == current[path] && current[path] != ""
		if path == ident.LibrariesPath {
			result.LibrariesMiss = !stable
			continue
		}
		if stable {
			result.StableFiles[path] = struct{}{}
		} else {
			result.UnstableFiles[path] = struct{}{}
		}
	}

	for _, node := range nodes {
		name := node.ID.String()
		if fingerprintStable(node.Fingerprint, current) {
			result.StableNodes[name] = struct{}{}
		} else {
			result.UnstableNodes[name] = struct{}{}
		}
	}

	return result
}

func fingerprintStable(fp ident.Fingerprint, current map[string]string) bool {
	for _, fc := range fp {
		cur, known := current[fc.Path]
		if !known || cur != fc.Checksum {
			return false
		}
	}
	return true
}
