package store

import "github.com/jacklau/picdedup/internal/fingerprint"

// Store defines the storage operations used by the pipeline.
// It is satisfied by *DB and can be replaced with a mock for testing.
type Store interface {
	fingerprint.Cache

	// RecordRun stores a finished run together with its per-file decisions.
	RecordRun(run *Run, decisions []Decision) error

	// DeleteFingerprints drops cache entries for files that no longer exist.
	DeleteFingerprints(paths []string) error
}

// Compile-time check that *DB satisfies the Store interface.
var _ Store = (*DB)(nil)
