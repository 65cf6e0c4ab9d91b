package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCommandEmptyDatabase(t *testing.T) {
	root := t.TempDir()
	cmd, buf := newTestCommand(t)

	opts := &RootOptions{Format: "text", Root: root}
	require.NoError(t, runStatus(opts, cmd))
	assert.Contains(t, buf.String(), "stable files: 0, changed files: 0")
	assert.Contains(t, buf.String(), "tests to run: 0")
}

func TestStatusCommandJSON(t *testing.T) {
	root := t.TempDir()
	cmd, buf := newTestCommand(t)

	opts := &RootOptions{Format: "json", Root: root, Environment: `"ci"`}
	require.NoError(t, runStatus(opts, cmd))

	var report StatusReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "ci", report.Environment)
	assert.False(t, report.LibrariesMiss)
}

func TestStatusCommandBadEnvironment(t *testing.T) {
	root := t.TempDir()
	cmd, _ := newTestCommand(t)

	opts := &RootOptions{Format: "text", Root: root, Environment: `int & "x"`}
	err := runStatus(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStatusCommandReadsFileConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".sift.yaml"),
		[]byte("database: custom.db\nenvironment: '\"staging\"'\n"), 0o644))
	cmd, buf := newTestCommand(t)

	opts := &RootOptions{Format: "json", Root: root}
	require.NoError(t, runStatus(opts, cmd))

	var report StatusReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "staging", report.Environment)
	_, err := os.Stat(filepath.Join(root, "custom.db"))
	require.NoError(t, err, "status must open the file-configured database")
}

func TestGCCommandEmptyDatabase(t *testing.T) {
	root := t.TempDir()
	cmd, buf := newTestCommand(t)

	opts := &RootOptions{Format: "text", Root: root}
	require.NoError(t, runGC(opts, cmd))
	assert.Contains(t, buf.String(), "unused fingerprints removed")
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "gc"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
