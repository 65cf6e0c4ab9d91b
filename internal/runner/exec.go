package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/siftlabs/sift/internal/engine"
	"github.com/siftlabs/sift/internal/ident"
)

// ExecHost adapts an external command-line test runner to the Host
// interface.
//
// CollectCommand must print one serialized node id per line. RunCommand is
// executed once per test with the placeholders {id}, {module}, {class},
// {name}, and {profile} expanded; a non-zero exit reports the test as
// failed. Both commands run with Dir as the working directory.
type ExecHost struct {
	Dir            string
	CollectCommand []string
	RunCommand     []string
}

// Collect runs CollectCommand and parses its output into node ids.
func (h *ExecHost) Collect(ctx context.Context) ([]ident.NodeID, error) {
	if len(h.CollectCommand) == 0 {
		return nil, fmt.Errorf("collect: no collect command configured")
	}

	cmd := exec.CommandContext(ctx, h.CollectCommand[0], h.CollectCommand[1:]...)
	cmd.Dir = h.Dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	var nodes []ident.NodeID
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := ident.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("collect: %w", err)
		}
		nodes = append(nodes, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	return nodes, nil
}

// Run executes RunCommand for one test. The whole command is reported as a
// single "call" phase; hosts with richer protocols report setup and
// teardown separately.
func (h *ExecHost) Run(ctx context.Context, node ident.NodeID, profilePath string) ([]engine.PhaseResult, error) {
	if len(h.RunCommand) == 0 {
		return nil, fmt.Errorf("run %s: no run command configured", node)
	}

	args := make([]string, len(h.RunCommand))
	for i, a := range h.RunCommand {
		args[i] = expandPlaceholders(a, node, profilePath)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = h.Dir

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Seconds()

	failed := false
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", node, err)
		}
		failed = true
	}

	return []engine.PhaseResult{{Phase: "call", Failed: failed, Duration: elapsed}}, nil
}

func expandPlaceholders(arg string, node ident.NodeID, profilePath string) string {
	r := strings.NewReplacer(
		"{id}", node.String(),
		"{module}", node.Module,
		"{class}", node.Class,
		"{name}", node.Name,
		"{profile}", profilePath,
	)
	return r.Replace(arg)
}
