package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content checksums. The version suffix enables future
// algorithm migration without ambiguity against old stored checksums.
const (
	DomainFile      = "sift/file/v1"
	DomainLibraries = "sift/libraries/v1"
)

// LibrariesPath is the pseudo-file path under which the installed library
// signature is tracked. It can never collide with a real relative path.
const LibrariesPath = "/_sift_libraries"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ChecksumBytes computes the content checksum for file contents.
func ChecksumBytes(data []byte) string {
	return hashWithDomain(DomainFile, data)
}

// ChecksumFile reads path and computes its content checksum.
func ChecksumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return ChecksumBytes(data), nil
}

// LibrariesChecksum computes the synthetic checksum of the installed
// dependency set. Entries are NFC normalized and sorted so the checksum is
// independent of enumeration order.
func LibrariesChecksum(libraries []string) string {
	normalized := make([]string, len(libraries))
	for i, lib := range libraries {
		normalized[i] = norm.NFC.String(lib)
	}
	sort.Strings(normalized)
	return hashWithDomain(DomainLibraries, []byte(strings.Join(normalized, "\n")))
}
