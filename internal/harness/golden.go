package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RoutingSnapshot captures the complete routing outcome of a scenario.
// Missions keep the order the router produced them in, so two runs with the
// same seed and clock give byte-identical snapshots.
type RoutingSnapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Missions     []MissionSnapshot `json:"missions"`
	RouteError   string            `json:"route_error,omitempty"`
}

// MarshalSnapshot renders a result as indented JSON with a trailing newline.
// This is the exact byte form stored in golden files, and the CLI test
// command compares against it directly.
//
// Parameters:
//   - name: scenario name recorded in the snapshot
//   - result: the result from running a scenario
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	// Route errors are part of the snapshot so failing scenarios are pinned too
	data, err := json.MarshalIndent(RoutingSnapshot{
		ScenarioName: name,
		Missions:     result.Missions,
		RouteError:   result.RouteError,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the missions against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files are the reference for which missions a scenario resolves,
// including delays and group labels.
//
// Parameters:
//   - t: testing.T instance for test assertions
//   - scenario: the scenario to execute
//
// Returns the result and an error if scenario execution fails.
// Test failure (via goldie) occurs if the missions don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	// Run the scenario
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file.
// This is useful when a scenario has already run and only the comparison
// is needed.
//
// Parameters:
//   - t: testing.T instance for test assertions
//   - scenarioName: name used for the golden file (without extension)
//   - result: the result from running a scenario
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	// Build the snapshot
	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	// Compare with golden file using goldie
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
