package harness

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/roach88/qcase/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Expectation that failed: sql, params, row_count, rows, error
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("expected %s %s, got %s", e.Type, e.Expected, e.Actual)
}

// checkStep compares a step result with its expectation and returns one
// message per failed check. A step without expectation must not fail.
func checkStep(sr StepResult, e *Expect) []string {
	if e == nil {
		if sr.Error != "" {
			return []string{"unexpected error: " + sr.Error}
		}
		return nil
	}

	if e.Error != "" {
		if err := assertError(sr, e.Error); err != nil {
			return []string{err.Error()}
		}
		return nil
	}
	if sr.Error != "" {
		return []string{"unexpected error: " + sr.Error}
	}

	var msgs []string
	for _, err := range []error{
		assertSQL(sr, e.SQL),
		assertParams(sr, e.Params),
		assertRowCount(sr, e.RowCount),
		assertRows(sr.Rows, e.Rows),
	} {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func assertError(sr StepResult, want string) error {
	if sr.Error == "" {
		return &AssertionError{Type: "error", Expected: fmt.Sprintf("containing %q", want), Actual: "success"}
	}
	if !strings.Contains(sr.Error, want) {
		return &AssertionError{Type: "error", Expected: fmt.Sprintf("containing %q", want), Actual: fmt.Sprintf("%q", sr.Error)}
	}
	return nil
}

func assertSQL(sr StepResult, want string) error {
	if want == "" {
		return nil
	}
	if strings.TrimSpace(want) != sr.SQL {
		return &AssertionError{Type: "sql", Expected: fmt.Sprintf("%q", strings.TrimSpace(want)), Actual: fmt.Sprintf("%q", sr.SQL)}
	}
	return nil
}

func assertParams(sr StepResult, want []any) error {
	if want == nil {
		return nil
	}
	if !valuesEqual(want, sr.Params) {
		return &AssertionError{Type: "params", Expected: fmt.Sprintf("%v", want), Actual: fmt.Sprintf("%v", sr.Params)}
	}
	return nil
}

func assertRowCount(sr StepResult, want *int) error {
	if want == nil {
		return nil
	}
	if len(sr.Rows) != *want {
		return &AssertionError{Type: "row_count", Expected: fmt.Sprintf("%d", *want), Actual: fmt.Sprintf("%d", len(sr.Rows))}
	}
	return nil
}

// assertRows matches expected rows against actual rows by position.
func assertRows(actual []ir.Row, want []map[string]any) error {
	if want == nil {
		return nil
	}
	if len(actual) != len(want) {
		return &AssertionError{Type: "rows", Expected: fmt.Sprintf("%d rows", len(want)), Actual: fmt.Sprintf("%d rows", len(actual))}
	}
	for i := range want {
		if path, ok := matchValue(actual[i], want[i], fmt.Sprintf("rows[%d]", i)); !ok {
			v, _ := lookupPath(actual[i], path, fmt.Sprintf("rows[%d]", i))
			return &AssertionError{Type: "rows", Expected: "match at " + path, Actual: fmt.Sprintf("%v", v)}
		}
	}
	return nil
}

// matchValue reports whether actual contains expected (subset match) and
// the path of the first mismatch. Maps match when every expected key
// matches; lists match element by element and must have equal length.
// Scalars compare by their string form, so YAML ints match driver int64s.
func matchValue(actual, expected any, path string) (string, bool) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return path, false
		}
		for _, k := range ir.SortedKeys(exp) {
			v, exists := act[k]
			if !exists {
				return path + "." + k, false
			}
			if p, ok := matchValue(v, exp[k], path+"."+k); !ok {
				return p, false
			}
		}
		return "", true
	case []any:
		act, ok := asList(actual)
		if !ok || len(act) != len(exp) {
			return path, false
		}
		for i := range exp {
			if p, ok := matchValue(act[i], exp[i], fmt.Sprintf("%s[%d]", path, i)); !ok {
				return p, false
			}
		}
		return "", true
	}
	if scalarsEqual(actual, expected) {
		return "", true
	}
	return path, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []ir.Row:
		out := make([]any, len(l))
		for i, r := range l {
			out[i] = r
		}
		return out, true
	}
	return nil, false
}

// lookupPath resolves a mismatch path for error messages. Paths that do not
// resolve return nil.
func lookupPath(row ir.Row, path, root string) (any, bool) {
	rest := strings.TrimPrefix(strings.TrimPrefix(path, root), ".")
	if rest == "" {
		return row, true
	}
	if strings.Contains(rest, "[") {
		return nil, false
	}
	return ir.Lookup(row, rest)
}

// scalarsEqual compares YAML-parsed values with driver values.
func scalarsEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	a, err := cast.ToStringE(actual)
	if err != nil {
		return false
	}
	e, err := cast.ToStringE(expected)
	if err != nil {
		return false
	}
	return a == e
}

// valuesEqual compares parameter lists, descending into multi-valued
// placeholders.
func valuesEqual(expected, actual []any) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if _, ok := matchValue(actual[i], expected[i], ""); !ok {
			return false
		}
	}
	return true
}
