// Package store implements the persistent database underlying sift.
//
// One SQLite database per project root holds, scoped by environment:
// fingerprint entries (file path + content checksum), test nodes (name,
// last outcome, last duration) linked to their fingerprint entries, and a
// small key/value attribute table for engine metadata.
//
// The store exclusively owns all persisted state. Higher layers hold only
// transient, derived views for the duration of one run, and every mutation
// funnels through the recorder and reconciler in internal/engine.
package store
