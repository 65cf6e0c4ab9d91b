package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestRunNoSelectRunsEverything(t *testing.T) {
	scenario := &Scenario{
		Name:        "no-select",
		Description: "no_select keeps every test in the run set",
		Files:       map[string]string{"a.go": "package a\n"},
		Tests: []TestDef{
			{ID: "a_test.go::TestOne", Deps: []string{"a.go"}},
			{ID: "a_test.go::TestTwo", Deps: []string{"a.go"}},
		},
		Runs: []RunStep{
			{Flags: RunFlags{Select: true}},
			{Flags: RunFlags{NoSelect: true}},
		},
	}

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	require.Len(t, result.Runs, 2)
	assert.Len(t, result.Runs[1].Executed, 2)
	assert.Equal(t, 0, result.Runs[1].Deselected)
}

func TestRunFiltersDeactivateSelection(t *testing.T) {
	scenario := &Scenario{
		Name:        "filters-deactivate",
		Description: "plain filters turn selection off rather than narrowing it",
		Files:       map[string]string{"a.go": "package a\n"},
		Tests: []TestDef{
			{ID: "a_test.go::TestOne", Deps: []string{"a.go"}},
		},
		Runs: []RunStep{
			{Flags: RunFlags{Select: true}},
			{Flags: RunFlags{Select: true, Filters: []string{"a_test.go::*"}}},
		},
	}

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	second := result.Runs[1]
	assert.Contains(t, second.Header, "selection deactivated")
	assert.Len(t, second.Executed, 1)
	assert.Equal(t, 0, second.Deselected)
}

func TestRunForceSelectAppliesFilters(t *testing.T) {
	scenario := &Scenario{
		Name:        "force-select",
		Description: "force_select gates must-run tests by filter",
		Files: map[string]string{
			"a.go": "package a\n",
			"b.go": "package b\n",
		},
		Tests: []TestDef{
			{ID: "a_test.go::TestA", Deps: []string{"a.go"}},
			{ID: "b_test.go::TestB", Deps: []string{"b.go"}},
		},
		Runs: []RunStep{
			{Flags: RunFlags{Select: true}},
			{
				Changes: map[string]string{
					"a.go": "package a\n\nvar X = 1\n",
					"b.go": "package b\n\nvar Y = 2\n",
				},
				Flags: RunFlags{ForceSelect: true, Filters: []string{"a_test.go::*"}},
			},
		},
	}

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	second := result.Runs[1]
	// Both tests are affected, but only the filtered one runs.
	assert.Equal(t, []string{"a_test.go::TestA"}, second.Executed)
	assert.Equal(t, 1, second.Deselected)
}

func TestRunNoCollectLeavesDatabaseUntouched(t *testing.T) {
	scenario := &Scenario{
		Name:        "no-collect",
		Description: "no_collect runs tests without recording them",
		Files:       map[string]string{"a.go": "package a\n"},
		Tests: []TestDef{
			{ID: "a_test.go::TestOne", Deps: []string{"a.go"}},
		},
		Runs: []RunStep{
			{Flags: RunFlags{Select: true, NoCollect: true}},
			{Flags: RunFlags{Select: true}},
		},
	}

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	// Nothing was recorded by the first run, so the test is still
	// unknown and runs again.
	assert.Len(t, result.Runs[1].Executed, 1)
}

func TestRunEvaluatesExpectClauses(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing-expect",
		Description: "a wrong expectation surfaces as a result error",
		Files:       map[string]string{"a.go": "package a\n"},
		Tests: []TestDef{
			{ID: "a_test.go::TestOne", Deps: []string{"a.go"}},
		},
		Runs: []RunStep{
			{
				Flags:  RunFlags{Select: true},
				Expect: &ExpectClause{Deselected: intp(5)},
			},
		},
	}

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "deselected 0, expected 5")
}

func TestRunOrdersNewTestsFirst(t *testing.T) {
	scenario := &Scenario{
		Name:        "ordering",
		Description: "a test without a recorded duration runs before slow known ones",
		Files:       map[string]string{"a.go": "package a\n", "b.go": "package b\n"},
		Tests: []TestDef{
			{ID: "a_test.go::TestSlow", Deps: []string{"a.go"}, Duration: 2.0},
			{ID: "b_test.go::TestNew", Deps: []string{"b.go"}},
		},
		Runs: []RunStep{
			// Record only the slow test; the other stays unknown.
			{Flags: RunFlags{ForceSelect: true, Filters: []string{"a_test.go::*"}}},
			// Change everything so both must run.
			{
				Changes: map[string]string{
					"a.go": "package a\n\nvar X = 1\n",
					"b.go": "package b\n\nvar Y = 2\n",
				},
				Flags: RunFlags{Select: true},
			},
		},
	}

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"b_test.go::TestNew", "a_test.go::TestSlow"}, result.Runs[1].Executed)
}
