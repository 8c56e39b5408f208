package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qcase/internal/ir"
)

// Snapshot captures the complete output of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Steps        []StepResult `json:"steps"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles maps, slices and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		m := map[string]any{
			"kind":  st.Kind,
			"table": st.Table,
		}
		if st.Name != "" {
			m["name"] = st.Name
		}
		if st.Kind == KindRead && st.SQL != "" {
			m["sql"] = st.SQL
			m["params"] = nonNil(st.Params)
			m["rows"] = nonNilRows(st.Rows)
			if len(st.Deferred) > 0 {
				m["deferred"] = st.Deferred
			}
		}
		if st.Error != "" {
			m["error"] = st.Error
		}
		steps[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
	}
}

func nonNil(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

func nonNilRows(v []ir.Row) []ir.Row {
	if v == nil {
		return []ir.Row{}
	}
	return v
}

// MarshalSnapshot renders a result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snap := Snapshot{ScenarioName: name, Steps: result.Steps}
	return ir.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its output against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can assert on it further, or an error if
// scenario execution fails. Test failure (via goldie) occurs if the output
// doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, schema *ir.Schema, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, schema, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	out, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, out)
	return nil
}
