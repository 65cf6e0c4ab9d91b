// Package session ties configuration, store, engine, tracer, and host
// runner together for the lifetime of one run. It is a thin control layer:
// every decision lives in internal/engine, every byte of persisted state in
// internal/store.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/ident"
	"github.com/siftlabs/sift/internal/runner"
	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/internal/trace"
)

// Exit statuses reported by Summary. Deselection is never a failure: a run
// where every test was deselected exits OK, not "no tests collected".
const (
	ExitOK     = 0
	ExitFailed = 1
)

// Session drives one run of the suite.
type Session struct {
	cfg       *config.Resolved
	st        *store.Store
	host      runner.Host
	tracer    trace.Tracer
	logger    *slog.Logger
	root      string
	libraries []string
}

// Summary is the user-visible result of a run.
type Summary struct {
	// Header is the single human-readable line describing this run's
	// selection inputs: changed/unstable file count, skipped tests, the
	// libraries-upgrade flag, and the active environment.
	Header string

	// Notice is an occasional maintenance reminder, shown at most once
	// per notice interval.
	Notice string

	Executed       int
	Deselected     int
	Failed         int
	PrunedNodes    int
	SkippedCommits int

	ExitStatus int
}

// New creates a session. A nil logger discards log output.
func New(cfg *config.Resolved, st *store.Store, host runner.Host, tracer trace.Tracer, root string, libraries []string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		cfg:       cfg,
		st:        st,
		host:      host,
		tracer:    tracer,
		logger:    logger,
		root:      root,
		libraries: libraries,
	}
}

// Run executes the full protocol: determine stability, reconcile, select,
// order, execute with tracing, record, and garbage-collect.
//
// Errors returned from Run are fatal per the error taxonomy; everything
// local to a single test is absorbed and reflected in the Summary.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	records, err := s.st.AllNodes(ctx)
	if err != nil {
		return nil, &engine.EngineError{Code: engine.ErrCodeDBUnreadable, Message: "reading nodes", Err: err}
	}

	stab, err := engine.DetermineStable(ctx, s.st, s.root, s.libraries)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	summary := &Summary{
		Header: strings.TrimSuffix(s.cfg.Message+s.headerMessage(stab, records), ", "),
	}
	if s.cfg.Collect {
		summary.Notice = s.maintenanceNotice(ctx)
	}

	collected, err := s.host.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: collect: %w", err)
	}
	// Filters narrow the collection in every mode; a filtered run is
	// partial, so the reconciliation guard below skips pruning.
	collected = engine.Filter(collected, s.cfg.Filters)

	retained := make(map[string]struct{}, len(collected))
	for _, id := range collected {
		retained[id.String()] = struct{}{}
	}
	reconciler := engine.NewReconciler(s.st, s.logger)
	pruned, err := reconciler.Sync(ctx, retained, len(s.cfg.Filters) > 0)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	summary.PrunedNodes = pruned

	sel := engine.Select(collected, records, stab, s.cfg.Mode, s.cfg.Filters)
	durations := engine.BuildDurations(records)

	toRun := engine.Order(sel.Selected, durations)
	if s.cfg.Apply {
		summary.Deselected = len(sel.Deselected)
	} else {
		// Selection not applied: everything runs, but selection still
		// informs the order - must-run tests first, each group fastest
		// first.
		toRun = append(toRun, engine.Order(sel.Deselected, durations)...)
	}

	recorder := engine.NewRecorder(s.st, s.logger, !s.cfg.Collect)
	for _, id := range toRun {
		s.runOne(ctx, id, recorder, summary)
	}
	summary.Executed = len(toRun)
	summary.SkippedCommits = recorder.SkippedCommits()

	if err := reconciler.Collect(ctx, s.cfg.Worker); err != nil {
		// GC failure costs disk space, not correctness.
		s.logger.Warn("fingerprint GC failed", "error", err)
	}

	if s.cfg.Collect {
		s.writeRunMetadata(ctx)
	}

	if summary.Failed > 0 {
		summary.ExitStatus = ExitFailed
	} else {
		summary.ExitStatus = ExitOK
	}
	return summary, nil
}

// runOne executes a single test with tracing around it and records the
// result. Any error here is local: the test's record is simply not
// committed this run, and unknown means must-run next time.
func (s *Session) runOne(ctx context.Context, id ident.NodeID, recorder *engine.Recorder, summary *Summary) {
	handle, err := s.tracer.Begin(id)
	if err != nil {
		s.logger.Warn("trace begin failed, result will not be recorded", "node", id.String(), "error", err)
		handle = nil
	}

	phases, err := s.host.Run(ctx, id, profilePathOf(handle))
	if err != nil {
		// Unrecoverable before teardown: the record is never committed,
		// which the stability algorithm treats as unknown.
		if handle != nil {
			handle.Abort()
		}
		summary.Failed++
		s.logger.Error("host error, record not committed", "node", id.String(), "error", err)
		return
	}

	failed, duration := engine.Aggregate(phases)
	if failed {
		summary.Failed++
	}

	if handle == nil {
		return
	}
	fp, err := handle.End()
	if err != nil {
		traceErr := &engine.EngineError{Code: engine.ErrCodeTraceFailed, Message: "fingerprint collection failed", Node: id.String(), Err: err}
		s.logger.Warn("record not committed, node re-runs next time", "node", id.String(), "error", traceErr)
		return
	}

	// Every fingerprint carries the library signature, so a dependency
	// upgrade invalidates the whole recorded suite.
	fp = append(fp, ident.FileChecksum{
		Path:     ident.LibrariesPath,
		Checksum: ident.LibrariesChecksum(s.libraries),
	})
	recorder.Record(ctx, id, fp, failed, duration)
}

// profilePathOf exposes the cover-profile path when the active tracer uses
// one; scripted tracers have no path.
func profilePathOf(handle trace.Handle) string {
	type pather interface{ ProfilePath() string }
	if p, ok := handle.(pather); ok {
		return p.ProfilePath()
	}
	return ""
}

// writeRunMetadata stamps the run into the attribute table.
func (s *Session) writeRunMetadata(ctx context.Context) {
	runID := uuid.Must(uuid.NewV7()).String()
	if err := s.st.WriteAttribute(ctx, "run_id", runID); err != nil {
		s.logger.Warn("failed to write run metadata", "error", err)
		return
	}
	if err := s.st.WriteAttribute(ctx, "last_run_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("failed to write run metadata", "error", err)
	}
}
