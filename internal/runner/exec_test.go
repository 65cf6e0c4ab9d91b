package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/internal/ident"
)

func TestExecHost_Collect(t *testing.T) {
	h := &ExecHost{
		Dir:            t.TempDir(),
		CollectCommand: []string{"sh", "-c", "printf 'a_test.go::T1\\n\\nb_test.go::Suite::T2\\n'"},
	}

	nodes, err := h.Collect(context.Background())
	require.NoError(t, err)

	require.Len(t, nodes, 2)
	assert.Equal(t, "a_test.go::T1", nodes[0].String())
	assert.Equal(t, "b_test.go::Suite::T2", nodes[1].String())
}

func TestExecHost_CollectRejectsBadIDs(t *testing.T) {
	h := &ExecHost{
		Dir:            t.TempDir(),
		CollectCommand: []string{"sh", "-c", "echo not-a-node-id"},
	}

	_, err := h.Collect(context.Background())
	require.Error(t, err)
}

func TestExecHost_RunReportsOutcome(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	pass := &ExecHost{Dir: dir, RunCommand: []string{"true"}}
	phases, err := pass.Run(ctx, ident.MustParse("a_test.go::T1"), "")
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.False(t, phases[0].Failed)
	assert.GreaterOrEqual(t, phases[0].Duration, 0.0)

	fail := &ExecHost{Dir: dir, RunCommand: []string{"false"}}
	phases, err = fail.Run(ctx, ident.MustParse("a_test.go::T1"), "")
	require.NoError(t, err, "a failing test is an outcome, not a host error")
	assert.True(t, phases[0].Failed)
}

func TestExecHost_RunExpandsPlaceholders(t *testing.T) {
	got := expandPlaceholders("{module}|{class}|{name}|{profile}",
		ident.MustParse("pkg/a_test.go::Suite::T1"), "/tmp/p.out")

	assert.Equal(t, "pkg/a_test.go|Suite|T1|/tmp/p.out", got)
}
