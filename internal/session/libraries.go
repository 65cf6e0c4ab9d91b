package session

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InstalledLibraries derives the installed dependency list for the library
// signature pseudo-file from the project's go.sum: one "module version"
// entry per dependency. A project without a go.sum has an empty library
// set, which is itself a stable signature.
func InstalledLibraries(root string) []string {
	f, err := os.Open(filepath.Join(root, "go.sum"))
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		version := strings.TrimSuffix(fields[1], "/go.mod")
		seen[fields[0]+" "+version] = struct{}{}
	}

	libs := make([]string, 0, len(seen))
	for lib := range seen {
		libs = append(libs, lib)
	}
	sort.Strings(libs)
	return libs
}
