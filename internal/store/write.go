package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/siftlabs/sift/internal/ident"
)

// UpsertNode atomically replaces the persisted record for one node: its
// outcome, duration, and entire fingerprint. The fingerprint is replaced,
// never merged - entries from code paths the test no longer executes must
// not survive.
//
// The whole operation runs in a single transaction. A crash after the
// commit of node N and before the commit of node N+1 leaves N fully
// present and N+1 fully absent; there is no partially written state.
func (s *Store) UpsertNode(ctx context.Context, rec ident.NodeRecord) error {
	name := rec.ID.String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert node %s: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	// Delete-then-insert replaces the fingerprint via the node_fp cascade.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM nodes WHERE environment = ? AND name = ?
	`, s.env, name); err != nil {
		return fmt.Errorf("upsert node %s: delete old: %w", name, err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (environment, name, failed, duration)
		VALUES (?, ?, ?, ?)
	`, s.env, name, rec.Failed, rec.Duration)
	if err != nil {
		return fmt.Errorf("upsert node %s: insert: %w", name, err)
	}

	nodeID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("upsert node %s: last insert id: %w", name, err)
	}

	for _, fc := range rec.Fingerprint.Normalize() {
		fpID, err := ensureFingerprint(ctx, tx, s.env, fc)
		if err != nil {
			return fmt.Errorf("upsert node %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO node_fp (node_id, fingerprint_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, nodeID, fpID); err != nil {
			return fmt.Errorf("upsert node %s: link fingerprint: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert node %s: commit: %w", name, err)
	}

	return nil
}

// ensureFingerprint inserts the (path, checksum) row if absent and returns
// its id. Rows are shared: two nodes depending on the same file content
// reference the same file_fp row.
func ensureFingerprint(ctx context.Context, tx *sql.Tx, env string, fc ident.FileChecksum) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO file_fp (environment, path, checksum) VALUES (?, ?, ?)
		ON CONFLICT (environment, path, checksum) DO NOTHING
	`, env, fc.Path, fc.Checksum); err != nil {
		return 0, fmt.Errorf("ensure fingerprint %s: %w", fc.Path, err)
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM file_fp WHERE environment = ? AND path = ? AND checksum = ?
	`, env, fc.Path, fc.Checksum).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure fingerprint %s: select id: %w", fc.Path, err)
	}
	return id, nil
}

// DeleteNodes removes the named nodes and, via cascade, their fingerprint
// links. Missing names are ignored. Runs in one transaction so a rerun
// after a crash sees either all deletions or none.
func (s *Store) DeleteNodes(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete nodes: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM nodes WHERE environment = ? AND name = ?
		`, s.env, name); err != nil {
			return fmt.Errorf("delete node %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete nodes: commit: %w", err)
	}
	return nil
}

// RemoveUnusedFingerprints garbage-collects file_fp rows no longer
// referenced by any node's fingerprint, across all environments.
//
// Only the coordinator process may call this at the end of a run; a worker
// calling it could delete rows another worker's in-flight commit is about
// to reference.
func (s *Store) RemoveUnusedFingerprints(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM file_fp
		WHERE id NOT IN (SELECT fingerprint_id FROM node_fp)
	`)
	if err != nil {
		return fmt.Errorf("remove unused fingerprints: %w", err)
	}
	return nil
}

// WriteAttribute stores an engine metadata value. Last write wins.
func (s *Store) WriteAttribute(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attributes (environment, key, value) VALUES (?, ?, ?)
		ON CONFLICT (environment, key) DO UPDATE SET value = excluded.value
	`, s.env, key, value)
	if err != nil {
		return fmt.Errorf("write attribute %s: %w", key, err)
	}
	return nil
}
