package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/internal/ident"
	"github.com/siftlabs/sift/internal/store"
)

func record(name string, failed bool, duration float64, fp ident.Fingerprint) ident.NodeRecord {
	return ident.NodeRecord{ID: ident.MustParse(name), Failed: failed, Duration: duration, Fingerprint: fp}
}

func TestPartition_NoChanges(t *testing.T) {
	nodes := []ident.NodeRecord{
		record("a_test.go::TestA", false, 1, ident.Fingerprint{{Path: "file1.go", Checksum: "h1"}}),
	}
	recorded := map[string][]string{"file1.go": {"h1"}}
	current := map[string]string{"file1.go": "h1"}

	result := Partition(nodes, recorded, current)

	assert.Contains(t, result.StableFiles, "file1.go")
	assert.True(t, result.NodeStable("a_test.go::TestA"))
	assert.False(t, result.LibrariesMiss)
}

func TestPartition_SourceChanged(t *testing.T) {
	nodes := []ident.NodeRecord{
		record("a_test.go::TestA", false, 1, ident.Fingerprint{{Path: "file1.go", Checksum: "h1"}}),
	}
	recorded := map[string][]string{"file1.go": {"h1"}}
	current := map[string]string{"file1.go": "h2"}

	result := Partition(nodes, recorded, current)

	assert.Contains(t, result.UnstableFiles, "file1.go")
	assert.Contains(t, result.UnstableNodes, "a_test.go::TestA")
	assert.NotContains(t, result.StableNodes, "a_test.go::TestA")
}

func TestPartition_UnknownFileIsUnstable(t *testing.T) {
	// The node references a file with no current checksum at all:
	// conservative default, must run.
	nodes := []ident.NodeRecord{
		record("a_test.go::TestA", false, 1, ident.Fingerprint{{Path: "vanished.go", Checksum: "h1"}}),
	}
	recorded := map[string][]string{"vanished.go": {"h1"}}

	result := Partition(nodes, recorded, map[string]string{})

	assert.Contains(t, result.UnstableNodes, "a_test.go::TestA")
	assert.Contains(t, result.UnstableFiles, "vanished.go")
}

func TestPartition_EmptyFingerprintIsStable(t *testing.T) {
	nodes := []ident.NodeRecord{record("a_test.go::TestNothing", false, 1, nil)}

	result := Partition(nodes, map[string][]string{}, map[string]string{})

	assert.True(t, result.NodeStable("a_test.go::TestNothing"))
}

func TestPartition_MixedFingerprint(t *testing.T) {
	// One matching entry does not save a node whose other entry changed.
	nodes := []ident.NodeRecord{
		record("a_test.go::TestA", false, 1, ident.Fingerprint{
			{Path: "same.go", Checksum: "s1"},
			{Path: "changed.go", Checksum: "c1"},
		}),
	}
	recorded := map[string][]string{"same.go": {"s1"}, "changed.go": {"c1"}}
	current := map[string]string{"same.go": "s1", "changed.go": "c2"}

	result := Partition(nodes, recorded, current)

	assert.Contains(t, result.UnstableNodes, "a_test.go::TestA")
	assert.Contains(t, result.StableFiles, "same.go")
	assert.Contains(t, result.UnstableFiles, "changed.go")
}

func TestPartition_LibrariesMiss(t *testing.T) {
	recorded := map[string][]string{ident.LibrariesPath: {"old-signature"}}
	current := map[string]string{ident.LibrariesPath: "new-signature"}

	result := Partition(nil, recorded, current)

	assert.True(t, result.LibrariesMiss)
	assert.NotContains(t, result.UnstableFiles, ident.LibrariesPath,
		"pseudo-file must not appear among real files")
}

func TestPartition_Deterministic(t *testing.T) {
	nodes := []ident.NodeRecord{
		record("a_test.go::TestA", false, 1, ident.Fingerprint{{Path: "x.go", Checksum: "h1"}}),
		record("b_test.go::TestB", true, 2, ident.Fingerprint{{Path: "y.go", Checksum: "h2"}}),
	}
	recorded := map[string][]string{"x.go": {"h1"}, "y.go": {"h2", "h3"}}
	current := map[string]string{"x.go": "h1", "y.go": "h2"}

	first := Partition(nodes, recorded, current)
	second := Partition(nodes, recorded, current)

	assert.Equal(t, first, second, "same inputs must yield identical partitions")
}

func TestDetermineStable_ReadsCurrentContents(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	stablePath := filepath.Join(root, "stable.go")
	require.NoError(t, os.WriteFile(stablePath, []byte("unchanged"), 0o644))
	changedPath := filepath.Join(root, "changed.go")
	require.NoError(t, os.WriteFile(changedPath, []byte("before"), 0o644))

	st, err := store.Open(filepath.Join(root, ".siftdata"), "")
	require.NoError(t, err)
	defer st.Close()

	libs := []string{"dep v1.0.0"}
	require.NoError(t, st.UpsertNode(ctx, record("a_test.go::TestStable", false, 1, ident.Fingerprint{
		{Path: "stable.go", Checksum: ident.ChecksumBytes([]byte("unchanged"))},
	})))
	require.NoError(t, st.UpsertNode(ctx, record("a_test.go::TestChanged", false, 1, ident.Fingerprint{
		{Path: "changed.go", Checksum: ident.ChecksumBytes([]byte("before"))},
		{Path: ident.LibrariesPath, Checksum: ident.LibrariesChecksum(libs)},
	})))

	// Mutate one file after recording.
	require.NoError(t, os.WriteFile(changedPath, []byte("after"), 0o644))

	result, err := DetermineStable(ctx, st, root, libs)
	require.NoError(t, err)

	assert.True(t, result.NodeStable("a_test.go::TestStable"))
	assert.Contains(t, result.UnstableNodes, "a_test.go::TestChanged")
	assert.Contains(t, result.StableFiles, "stable.go")
	assert.Contains(t, result.UnstableFiles, "changed.go")
	assert.False(t, result.LibrariesMiss, "library set did not change")

	// A dependency upgrade invalidates the library pseudo-file.
	upgraded, err := DetermineStable(ctx, st, root, []string{"dep v2.0.0"})
	require.NoError(t, err)
	assert.True(t, upgraded.LibrariesMiss)
	assert.Contains(t, upgraded.UnstableNodes, "a_test.go::TestChanged")
}
