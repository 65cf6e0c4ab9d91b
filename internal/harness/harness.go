package harness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/siftlabs/sift/internal/config"
	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/ident"
	"github.com/siftlabs/sift/internal/runner"
	"github.com/siftlabs/sift/internal/session"
	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/internal/testutil"
	"github.com/siftlabs/sift/internal/trace"
)

// defaultDuration is the call-phase duration for tests whose scenario
// does not script one. Non-zero so ordering by recorded duration is
// exercised.
const defaultDuration = 0.01

// Run executes a scenario in workdir and returns the per-run traces.
//
// The scenario's runs share one database, so the second run sees what the
// first recorded. The working tree is materialized on disk and mutated
// between runs exactly as a developer editing files would.
func Run(scenario *Scenario, workdir string) (*Result, error) {
	if err := testutil.WriteTree(workdir, scenario.Files); err != nil {
		return nil, fmt.Errorf("failed to write tree: %w", err)
	}

	st, err := store.Open(filepath.Join(workdir, config.DefaultDatabase), scenario.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	result := NewResult()
	libraries := scenario.Libraries

	for i, step := range scenario.Runs {
		if err := testutil.WriteTree(workdir, step.Changes); err != nil {
			return nil, fmt.Errorf("run %d: failed to apply changes: %w", i, err)
		}
		if err := testutil.RemoveFiles(workdir, step.Removes); err != nil {
			return nil, fmt.Errorf("run %d: failed to remove files: %w", i, err)
		}
		if step.Libraries != nil {
			libraries = step.Libraries
		}

		trc, err := executeRun(ctx, scenario, step, st, workdir, libraries)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
		result.Runs = append(result.Runs, *trc)

		for _, msg := range EvaluateExpect(i, *trc, step.Expect) {
			result.AddError(msg)
		}
	}
	return result, nil
}

// executeRun drives one session against the scenario's scripted host and
// tracer.
func executeRun(ctx context.Context, scenario *Scenario, step RunStep, st *store.Store, workdir string, libraries []string) (*RunTrace, error) {
	cfg, err := resolveFlags(scenario, step.Flags)
	if err != nil {
		return nil, err
	}

	host, tracer, err := scriptSuite(scenario, step, workdir)
	if err != nil {
		return nil, err
	}

	sess := session.New(cfg, st, host, tracer, workdir, libraries, nil)
	summary, err := sess.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("session failed: %w", err)
	}

	return &RunTrace{
		Header:     summary.Header,
		Executed:   append([]string{}, host.Ran...),
		Deselected: summary.Deselected,
		Failed:     summary.Failed,
		Pruned:     summary.PrunedNodes,
		Exit:       summary.ExitStatus,
	}, nil
}

// resolveFlags maps scenario flags through the same resolution the CLI
// uses, so mode negotiation and filter compilation behave identically.
func resolveFlags(scenario *Scenario, flags RunFlags) (*config.Resolved, error) {
	envExpr := ""
	if scenario.Environment != "" {
		envExpr = strconv.Quote(scenario.Environment)
	}
	return config.Resolve(config.Options{
		Select:          flags.Select,
		ForceSelect:     flags.ForceSelect,
		NoSelect:        flags.NoSelect,
		NoCollect:       flags.NoCollect,
		EnvironmentExpr: envExpr,
		Filters:         flags.Filters,
		Worker:          flags.Worker,
	})
}

// scriptSuite builds the host and tracer for one run from the current
// working tree. Fingerprints reflect the tree as it stands now, so a file
// edited between runs yields a different trace.
func scriptSuite(scenario *Scenario, step RunStep, workdir string) (*runner.FakeHost, *trace.FakeTracer, error) {
	host := &runner.FakeHost{
		Results: make(map[string][]engine.PhaseResult, len(scenario.Tests)),
	}
	tracer := &trace.FakeTracer{
		Fingerprints: make(map[string]ident.Fingerprint, len(scenario.Tests)),
	}

	for _, td := range scenario.Tests {
		id, err := ident.Parse(td.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("test %q: %w", td.ID, err)
		}
		host.Collected = append(host.Collected, id)

		failed, duration := td.Failed, td.Duration
		if out, ok := step.Outcomes[td.ID]; ok {
			failed, duration = out.Failed, out.Duration
		}
		if duration == 0 {
			duration = defaultDuration
		}
		host.Results[td.ID] = []engine.PhaseResult{
			{Phase: "call", Failed: failed, Duration: duration},
		}

		fp, err := currentFingerprint(td, workdir)
		if err != nil {
			return nil, nil, fmt.Errorf("test %q: %w", td.ID, err)
		}
		tracer.Fingerprints[td.ID] = fp
	}
	return host, tracer, nil
}

// currentFingerprint checksums the test's dependencies as they exist on
// disk. A dependency deleted from the tree simply drops out of the trace.
// The library signature is not scripted here: the session appends it to
// every recorded fingerprint, same as in production.
func currentFingerprint(td TestDef, workdir string) (ident.Fingerprint, error) {
	var fp ident.Fingerprint
	for _, dep := range td.Deps {
		sum, err := ident.ChecksumFile(filepath.Join(workdir, dep))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("checksum %s: %w", dep, err)
		}
		fp = append(fp, ident.FileChecksum{Path: dep, Checksum: sum})
	}
	return fp.Normalize(), nil
}
