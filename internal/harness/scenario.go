package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a working tree, a suite of
// scripted tests, and a sequence of runs with expected selection outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Environment is the partition key for the scenario's database.
	// Empty selects the default partition.
	Environment string `yaml:"environment,omitempty"`

	// Files is the initial working tree, path to content.
	Files map[string]string `yaml:"files"`

	// Libraries is the initial installed-dependency list for the library
	// signature.
	Libraries []string `yaml:"libraries,omitempty"`

	// Tests defines the scripted suite. Every test is collected on every
	// run.
	Tests []TestDef `yaml:"tests"`

	// Runs is the sequence of runs to execute against the same database.
	Runs []RunStep `yaml:"runs"`
}

// TestDef scripts one test: its identifier, the files its trace touches,
// and its default outcome.
type TestDef struct {
	// ID is the structured test identifier (module::class::name or
	// module::name).
	ID string `yaml:"id"`

	// Deps lists the working-tree paths this test's trace covers.
	Deps []string `yaml:"deps"`

	// Failed is the test's default outcome.
	Failed bool `yaml:"failed,omitempty"`

	// Duration is the test's default call-phase duration in seconds.
	// Zero means a fast default.
	Duration float64 `yaml:"duration,omitempty"`
}

// RunStep is one run: tree edits applied before it, flags, outcome
// overrides, and the expected result.
type RunStep struct {
	// Changes are files written before this run, path to new content.
	Changes map[string]string `yaml:"changes,omitempty"`

	// Removes are files deleted before this run.
	Removes []string `yaml:"removes,omitempty"`

	// Libraries replaces the installed-dependency list before this run.
	Libraries []string `yaml:"libraries,omitempty"`

	// Flags selects the run mode.
	Flags RunFlags `yaml:"flags,omitempty"`

	// Outcomes overrides test outcomes for this run only, keyed by test
	// id.
	Outcomes map[string]Outcome `yaml:"outcomes,omitempty"`

	// Expect validates the run result. Absent fields are not checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// RunFlags mirrors the CLI selection flags.
type RunFlags struct {
	Select      bool     `yaml:"select,omitempty"`
	ForceSelect bool     `yaml:"force_select,omitempty"`
	NoSelect    bool     `yaml:"no_select,omitempty"`
	NoCollect   bool     `yaml:"no_collect,omitempty"`
	Filters     []string `yaml:"filters,omitempty"`
	Worker      bool     `yaml:"worker,omitempty"`
}

// Outcome is a per-run test outcome override.
type Outcome struct {
	Failed   bool    `yaml:"failed,omitempty"`
	Duration float64 `yaml:"duration,omitempty"`
}

// ExpectClause specifies the expected run result. Subset match: only
// present fields are validated.
type ExpectClause struct {
	// Executed is the exact ordered list of executed test ids. A nil
	// list skips the check; an empty list expects no executions.
	Executed []string `yaml:"executed,omitempty"`

	Deselected *int `yaml:"deselected,omitempty"`
	Failed     *int `yaml:"failed,omitempty"`
	Pruned     *int `yaml:"pruned,omitempty"`
	Exit       *int `yaml:"exit,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently relaxing the
// scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// reference resolves.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Tests) == 0 {
		return fmt.Errorf("tests list is required and must be non-empty")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	known := make(map[string]struct{}, len(s.Tests))
	for i, td := range s.Tests {
		if td.ID == "" {
			return fmt.Errorf("tests[%d]: id is required", i)
		}
		if _, dup := known[td.ID]; dup {
			return fmt.Errorf("tests[%d]: duplicate id %q", i, td.ID)
		}
		known[td.ID] = struct{}{}
		for _, dep := range td.Deps {
			if dep == "" {
				return fmt.Errorf("tests[%d]: empty dep path", i)
			}
		}
	}

	for i, run := range s.Runs {
		if run.Flags.ForceSelect && run.Flags.NoSelect {
			return fmt.Errorf("runs[%d]: force_select and no_select contradict", i)
		}
		for id := range run.Outcomes {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("runs[%d]: outcome for unknown test %q", i, id)
			}
		}
		if run.Expect != nil {
			for _, id := range run.Expect.Executed {
				if _, ok := known[id]; !ok {
					return fmt.Errorf("runs[%d]: expected execution of unknown test %q", i, id)
				}
			}
		}
	}
	return nil
}
