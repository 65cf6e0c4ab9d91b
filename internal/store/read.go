package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/siftlabs/sift/internal/ident"
)

// AllNodes returns every persisted node in this environment with its
// fingerprint, ordered by name for determinism. This is the bulk read the
// stability engine runs once at the start of a run.
func (s *Store) AllNodes(ctx context.Context) ([]ident.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, failed, duration FROM nodes
		WHERE environment = ?
		ORDER BY name
	`, s.env)
	if err != nil {
		return nil, fmt.Errorf("all nodes: %w", err)
	}
	defer rows.Close()

	type rawNode struct {
		rowID int64
		rec   ident.NodeRecord
	}

	var raw []rawNode
	for rows.Next() {
		var n rawNode
		var name string
		if err := rows.Scan(&n.rowID, &name, &n.rec.Failed, &n.rec.Duration); err != nil {
			return nil, fmt.Errorf("all nodes: scan: %w", err)
		}
		id, err := ident.Parse(name)
		if err != nil {
			// A record we cannot identify would silently corrupt future
			// selection; escalate instead of skipping.
			return nil, fmt.Errorf("all nodes: %w", err)
		}
		n.rec.ID = id
		raw = append(raw, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("all nodes: %w", err)
	}

	records := make([]ident.NodeRecord, 0, len(raw))
	for _, n := range raw {
		fp, err := s.nodeFingerprint(ctx, n.rowID)
		if err != nil {
			return nil, fmt.Errorf("all nodes: node %s: %w", n.rec.ID, err)
		}
		n.rec.Fingerprint = fp
		records = append(records, n.rec)
	}
	return records, nil
}

// nodeFingerprint loads the fingerprint entries linked to one node row.
func (s *Store) nodeFingerprint(ctx context.Context, nodeRowID int64) (ident.Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.path, f.checksum
		FROM node_fp nf JOIN file_fp f ON f.id = nf.fingerprint_id
		WHERE nf.node_id = ?
		ORDER BY f.path, f.checksum
	`, nodeRowID)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	defer rows.Close()

	var fp ident.Fingerprint
	for rows.Next() {
		var fc ident.FileChecksum
		if err := rows.Scan(&fc.Path, &fc.Checksum); err != nil {
			return nil, fmt.Errorf("fingerprint: scan: %w", err)
		}
		fp = append(fp, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	return fp, nil
}

// RecordedChecksums returns, per file path in this environment, the distinct
// checksums any fingerprint has recorded for it. A path maps to more than
// one checksum when nodes last ran against different versions of the file.
func (s *Store) RecordedChecksums(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, checksum FROM file_fp
		WHERE environment = ?
		ORDER BY path, checksum
	`, s.env)
	if err != nil {
		return nil, fmt.Errorf("recorded checksums: %w", err)
	}
	defer rows.Close()

	checksums := make(map[string][]string)
	for rows.Next() {
		var path, checksum string
		if err := rows.Scan(&path, &checksum); err != nil {
			return nil, fmt.Errorf("recorded checksums: scan: %w", err)
		}
		checksums[path] = append(checksums[path], checksum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recorded checksums: %w", err)
	}
	return checksums, nil
}

// FetchAttribute reads an engine metadata value. The second return value
// reports whether the key was present.
func (s *Store) FetchAttribute(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM attributes WHERE environment = ? AND key = ?
	`, s.env, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("fetch attribute %s: %w", key, err)
	}
	return value, true, nil
}
