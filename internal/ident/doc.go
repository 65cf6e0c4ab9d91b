// Package ident provides the shared data model for sift.
//
// This package contains type definitions and pure functions only. All other
// internal packages import ident; ident imports nothing internal. This keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Node identifiers are structured (module / optional class / name), not
//     ad hoc strings; Parse and String round-trip exactly
//   - All identifier text is NFC normalized so the same test has the same
//     identity regardless of the filesystem's Unicode form
//   - Checksums are SHA-256 with domain separation; the domain prefix makes
//     a file checksum and a library-set checksum incomparable by construction
package ident
