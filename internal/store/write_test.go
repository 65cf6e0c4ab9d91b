package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/siftlabs/sift/internal/ident"
)

func openTestStore(t *testing.T, env string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "siftdata.db"), env)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(name string, failed bool, fp ident.Fingerprint) ident.NodeRecord {
	return ident.NodeRecord{
		ID:          ident.MustParse(name),
		Failed:      failed,
		Duration:    0.25,
		Fingerprint: fp,
	}
}

func TestUpsertNode_RoundTrip(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	rec := testRecord("pkg/a_test.go::TestA", false, ident.Fingerprint{
		{Path: "pkg/a.go", Checksum: "h1"},
		{Path: "pkg/b.go", Checksum: "h2"},
	})
	if err := s.UpsertNode(ctx, rec); err != nil {
		t.Fatalf("UpsertNode() failed: %v", err)
	}

	nodes, err := s.AllNodes(ctx)
	if err != nil {
		t.Fatalf("AllNodes() failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	got := nodes[0]
	if got.ID != rec.ID || got.Failed != rec.Failed || got.Duration != rec.Duration {
		t.Errorf("node mismatch: got %+v, want %+v", got, rec)
	}
	if !reflect.DeepEqual(got.Fingerprint, rec.Fingerprint.Normalize()) {
		t.Errorf("fingerprint mismatch: got %v", got.Fingerprint)
	}
}

func TestUpsertNode_ReplacesFingerprintNotMerges(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	name := "pkg/a_test.go::TestA"
	first := testRecord(name, false, ident.Fingerprint{
		{Path: "pkg/old.go", Checksum: "h1"},
		{Path: "pkg/kept.go", Checksum: "h2"},
	})
	if err := s.UpsertNode(ctx, first); err != nil {
		t.Fatalf("first UpsertNode() failed: %v", err)
	}

	second := testRecord(name, true, ident.Fingerprint{
		{Path: "pkg/kept.go", Checksum: "h3"},
	})
	if err := s.UpsertNode(ctx, second); err != nil {
		t.Fatalf("second UpsertNode() failed: %v", err)
	}

	nodes, err := s.AllNodes(ctx)
	if err != nil {
		t.Fatalf("AllNodes() failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node after replace, got %d", len(nodes))
	}
	got := nodes[0]
	if !got.Failed {
		t.Error("outcome was not replaced")
	}
	want := ident.Fingerprint{{Path: "pkg/kept.go", Checksum: "h3"}}
	if !reflect.DeepEqual(got.Fingerprint, want) {
		t.Errorf("stale fingerprint entries survived replace: got %v", got.Fingerprint)
	}
}

func TestUpsertNode_EmptyFingerprint(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	if err := s.UpsertNode(ctx, testRecord("pkg/a_test.go::TestEmpty", false, nil)); err != nil {
		t.Fatalf("UpsertNode() failed: %v", err)
	}

	nodes, err := s.AllNodes(ctx)
	if err != nil {
		t.Fatalf("AllNodes() failed: %v", err)
	}
	if len(nodes) != 1 || len(nodes[0].Fingerprint) != 0 {
		t.Errorf("expected one node with empty fingerprint, got %+v", nodes)
	}
}

func TestUpsertNode_CommitAtomicity(t *testing.T) {
	// A crash between two node commits must leave the first fully present
	// and the second fully absent. Simulated by committing node A, closing
	// the store mid-suite, and reopening.
	path := filepath.Join(t.TempDir(), "siftdata.db")
	ctx := context.Background()

	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	recA := testRecord("pkg/a_test.go::TestA", false, ident.Fingerprint{{Path: "pkg/a.go", Checksum: "h1"}})
	if err := s.UpsertNode(ctx, recA); err != nil {
		t.Fatalf("UpsertNode(A) failed: %v", err)
	}
	s.Close() // crash point: B never committed

	reopened, err := Open(path, "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	nodes, err := reopened.AllNodes(ctx)
	if err != nil {
		t.Fatalf("AllNodes() failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected exactly node A, got %d nodes", len(nodes))
	}
	if !reflect.DeepEqual(nodes[0].Fingerprint, recA.Fingerprint.Normalize()) {
		t.Errorf("node A fingerprint incomplete after reopen: %v", nodes[0].Fingerprint)
	}
}

func TestDeleteNodes(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	for _, name := range []string{"a_test.go::T1", "a_test.go::T2", "b_test.go::T3"} {
		if err := s.UpsertNode(ctx, testRecord(name, false, nil)); err != nil {
			t.Fatalf("UpsertNode(%s) failed: %v", name, err)
		}
	}

	if err := s.DeleteNodes(ctx, []string{"a_test.go::T1", "b_test.go::T3", "missing_test.go::T9"}); err != nil {
		t.Fatalf("DeleteNodes() failed: %v", err)
	}

	nodes, err := s.AllNodes(ctx)
	if err != nil {
		t.Fatalf("AllNodes() failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID.String() != "a_test.go::T2" {
		t.Errorf("unexpected survivors: %+v", nodes)
	}
}

func TestRemoveUnusedFingerprints(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	shared := ident.FileChecksum{Path: "shared.go", Checksum: "h1"}
	only := ident.FileChecksum{Path: "only.go", Checksum: "h2"}
	if err := s.UpsertNode(ctx, testRecord("a_test.go::T1", false, ident.Fingerprint{shared, only})); err != nil {
		t.Fatalf("UpsertNode(T1) failed: %v", err)
	}
	if err := s.UpsertNode(ctx, testRecord("a_test.go::T2", false, ident.Fingerprint{shared})); err != nil {
		t.Fatalf("UpsertNode(T2) failed: %v", err)
	}

	// Deleting T1 orphans only.go but keeps shared.go referenced by T2.
	if err := s.DeleteNodes(ctx, []string{"a_test.go::T1"}); err != nil {
		t.Fatalf("DeleteNodes() failed: %v", err)
	}
	if err := s.RemoveUnusedFingerprints(ctx); err != nil {
		t.Fatalf("RemoveUnusedFingerprints() failed: %v", err)
	}

	checksums, err := s.RecordedChecksums(ctx)
	if err != nil {
		t.Fatalf("RecordedChecksums() failed: %v", err)
	}
	if _, ok := checksums["only.go"]; ok {
		t.Error("orphaned fingerprint was not collected")
	}
	if got := checksums["shared.go"]; len(got) != 1 || got[0] != "h1" {
		t.Errorf("shared fingerprint damaged by GC: %v", got)
	}
}

func TestAttributes_LastWriteWins(t *testing.T) {
	s := openTestStore(t, "")
	ctx := context.Background()

	if _, ok, err := s.FetchAttribute(ctx, "last_notice_date"); err != nil || ok {
		t.Fatalf("expected absent attribute, got ok=%v err=%v", ok, err)
	}

	if err := s.WriteAttribute(ctx, "last_notice_date", "2026-08-01"); err != nil {
		t.Fatalf("WriteAttribute() failed: %v", err)
	}
	if err := s.WriteAttribute(ctx, "last_notice_date", "2026-08-30"); err != nil {
		t.Fatalf("second WriteAttribute() failed: %v", err)
	}

	value, ok, err := s.FetchAttribute(ctx, "last_notice_date")
	if err != nil || !ok {
		t.Fatalf("FetchAttribute() failed: ok=%v err=%v", ok, err)
	}
	if value != "2026-08-30" {
		t.Errorf("expected last write to win, got %q", value)
	}
}

func TestEnvironments_AreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siftdata.db")
	ctx := context.Background()

	def, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open(default) failed: %v", err)
	}
	defer def.Close()
	if err := def.UpsertNode(ctx, testRecord("a_test.go::T1", false, nil)); err != nil {
		t.Fatalf("UpsertNode() failed: %v", err)
	}
	def.Close()

	py311, err := Open(path, "py311")
	if err != nil {
		t.Fatalf("Open(py311) failed: %v", err)
	}
	defer py311.Close()

	nodes, err := py311.AllNodes(ctx)
	if err != nil {
		t.Fatalf("AllNodes() failed: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("environment leak: %+v", nodes)
	}
	if err := py311.WriteAttribute(ctx, "k", "v-py311"); err != nil {
		t.Fatalf("WriteAttribute() failed: %v", err)
	}

	reopened, err := Open(path, "")
	if err != nil {
		t.Fatalf("reopen default failed: %v", err)
	}
	defer reopened.Close()
	if _, ok, _ := reopened.FetchAttribute(ctx, "k"); ok {
		t.Error("attribute leaked across environments")
	}
}
