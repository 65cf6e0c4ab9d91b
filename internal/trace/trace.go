// Package trace defines the boundary to the external coverage collaborator
// that observes which code a running test touches.
//
// The engine never depends on a specific tracing technology; it calls
// Begin/End around each test and receives a fingerprint. A tracer failure
// is local to one test: its record is simply not committed this run and
// the test falls back to unknown (and therefore must-run) next run.
package trace

import (
	"github.com/siftlabs/sift/internal/ident"
)

// Tracer is the capability interface the engine calls around each test's
// execution.
type Tracer interface {
	// Begin starts observation for one test. The returned handle is live
	// until End is called; handles are not reused across tests.
	Begin(node ident.NodeID) (Handle, error)
}

// Handle is one test's in-flight observation.
type Handle interface {
	// End stops observation and converts the observed (file, region) set
	// into a fingerprint of (file, content-checksum) entries.
	End() (ident.Fingerprint, error)

	// Abort discards the observation without producing a fingerprint.
	// Called when the host signals an unrecoverable error before the
	// test's recording phase completes.
	Abort()
}
