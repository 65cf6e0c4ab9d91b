package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// scenarioSnapshot is the golden file payload: the scenario name plus the
// trace of every run.
type scenarioSnapshot struct {
	ScenarioName string     `json:"scenario_name"`
	Runs         []RunTrace `json:"runs"`
}

// RunWithGolden executes a scenario in a fresh temp directory and compares
// the run traces against a golden file at
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario, t.TempDir())
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	snapshot := scenarioSnapshot{
		ScenarioName: scenario.Name,
		Runs:         result.Runs,
	}
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, payload)
	return nil
}
