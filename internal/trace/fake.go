package trace

import (
	"fmt"
	"sync"

	"github.com/siftlabs/sift/internal/ident"
)

// FakeTracer replays scripted fingerprints keyed by node id. Used by tests
// and by the harness, where the "code a test touched" is part of the
// scenario definition rather than observed.
type FakeTracer struct {
	mu           sync.Mutex
	Fingerprints map[string]ident.Fingerprint

	// FailFor lists node ids whose trace collection should fail, to
	// exercise the local-error path.
	FailFor map[string]struct{}

	begun   []string
	aborted []string
}

// Begin records the call and returns a handle bound to the scripted data.
func (f *FakeTracer) Begin(node ident.NodeID) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := node.String()
	f.begun = append(f.begun, name)
	return &fakeHandle{tracer: f, name: name}, nil
}

// Begun returns the node ids Begin was called for, in order.
func (f *FakeTracer) Begun() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.begun...)
}

// Aborted returns the node ids whose handles were aborted.
func (f *FakeTracer) Aborted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.aborted...)
}

type fakeHandle struct {
	tracer *FakeTracer
	name   string
}

func (h *fakeHandle) End() (ident.Fingerprint, error) {
	h.tracer.mu.Lock()
	defer h.tracer.mu.Unlock()
	if _, fail := h.tracer.FailFor[h.name]; fail {
		return nil, fmt.Errorf("end trace %s: scripted failure", h.name)
	}
	return h.tracer.Fingerprints[h.name].Normalize(), nil
}

func (h *fakeHandle) Abort() {
	h.tracer.mu.Lock()
	defer h.tracer.mu.Unlock()
	h.tracer.aborted = append(h.tracer.aborted, h.name)
}
