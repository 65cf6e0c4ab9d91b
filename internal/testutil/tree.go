// Package testutil provides shared helpers for tests that need a real
// working tree on disk.
package testutil

import (
	"os"
	"path/filepath"
)

// WriteTree materializes files (path to content) under dir, creating
// parent directories as needed.
func WriteTree(dir string, files map[string]string) error {
	for path, content := range files {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFiles deletes the given relative paths under dir. Missing files
// are ignored so scenarios can remove a file twice.
func RemoveFiles(dir string, paths []string) error {
	for _, path := range paths {
		err := os.Remove(filepath.Join(dir, path))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
