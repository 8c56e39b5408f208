package harness

import "github.com/roach88/qcase/internal/ir"

// StepResult records what one step did.
type StepResult struct {
	Name  string `json:"name,omitempty"`
	Kind  string `json:"kind"`
	Table string `json:"table"`

	// SQL and Params are the root statement of a read, after allow-list
	// translation and association joins.
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`

	// Deferred names the associations a read resolved by batch queries.
	Deferred []string `json:"deferred,omitempty"`

	// Rows are the nested rows a read returned.
	Rows []ir.Row `json:"rows,omitempty"`

	// Error is the step's error message, if it failed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step met its expectation.
	Pass bool `json:"pass"`

	// Steps holds one entry per executed step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step result.
func (r *Result) AddStep(s StepResult) {
	r.Steps = append(r.Steps, s)
}
