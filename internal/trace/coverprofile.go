package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/cover"

	"github.com/siftlabs/sift/internal/ident"
)

// CoverProfileTracer converts Go cover profiles into fingerprints. The host
// runner is expected to write a profile for each test to the path the
// handle announces (typically by passing it as -coverprofile).
//
// Profile file names are import paths; ModulePrefix is stripped to recover
// the path relative to Root before checksumming.
type CoverProfileTracer struct {
	Root         string
	ModulePrefix string

	// Dir holds per-test profile files; defaults to the OS temp dir.
	Dir string
}

// Begin allocates a profile path for the node and returns its handle.
func (t *CoverProfileTracer) Begin(node ident.NodeID) (Handle, error) {
	dir := t.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "sift-cover-*.out")
	if err != nil {
		return nil, fmt.Errorf("begin trace %s: %w", node, err)
	}
	f.Close()
	return &coverHandle{tracer: t, profilePath: f.Name()}, nil
}

type coverHandle struct {
	tracer      *CoverProfileTracer
	profilePath string
}

// ProfilePath is where the host runner must write this test's cover
// profile before End is called.
func (h *coverHandle) ProfilePath() string {
	return h.profilePath
}

// End parses the profile and checksums every file the test executed.
func (h *coverHandle) End() (ident.Fingerprint, error) {
	defer os.Remove(h.profilePath)

	profiles, err := cover.ParseProfiles(h.profilePath)
	if err != nil {
		return nil, fmt.Errorf("end trace: parse profile: %w", err)
	}

	var fp ident.Fingerprint
	seen := make(map[string]struct{})
	for _, profile := range profiles {
		if !executed(profile) {
			continue
		}
		rel := h.tracer.relativePath(profile.FileName)
		if rel == "" {
			continue
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}

		checksum, err := ident.ChecksumFile(filepath.Join(h.tracer.Root, rel))
		if err != nil {
			return nil, fmt.Errorf("end trace: %w", err)
		}
		fp = append(fp, ident.FileChecksum{Path: rel, Checksum: checksum})
	}
	return fp.Normalize(), nil
}

// Abort discards the profile without parsing it.
func (h *coverHandle) Abort() {
	os.Remove(h.profilePath)
}

// executed reports whether any block of the profile ran.
func executed(p *cover.Profile) bool {
	for _, b := range p.Blocks {
		if b.Count > 0 {
			return true
		}
	}
	return false
}

// relativePath maps a profile's import-path file name to a root-relative
// path. Files outside the module are not trackable and map to "".
func (t *CoverProfileTracer) relativePath(fileName string) string {
	if t.ModulePrefix == "" {
		return fileName
	}
	prefix := strings.TrimSuffix(t.ModulePrefix, "/") + "/"
	if !strings.HasPrefix(fileName, prefix) {
		return ""
	}
	return strings.TrimPrefix(fileName, prefix)
}
