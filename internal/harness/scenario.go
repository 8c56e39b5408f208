package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query scenario.
// Scenarios seed a fresh database, run a sequence of reads and association
// writes against a schema, and check the SQL each read renders and the
// nested rows it returns.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a directory of CUE table and model files. Relative paths
	// resolve against the scenario file. When empty the caller supplies the
	// schema.
	Schema string `yaml:"schema,omitempty"`

	// Setup contains SQL statements run before the steps, typically the
	// table DDL and seed rows.
	Setup []string `yaml:"setup,omitempty"`

	// IDPrefix prefixes the keys generated for inserted association rows.
	// If empty, keys are "id-001", "id-002", ...
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Steps run in order against the same database.
	Steps []Step `yaml:"steps"`
}

// Step is one read, write or delete.
//
// A step with Write reconciles the association payloads in Write against
// Table. A step with Delete removes the association rows owned by the
// listed keys. Any other step is a read: Request is translated through the
// allow-list of Model (or of Table when no model is named) and fetched with
// every association resolved.
type Step struct {
	// Name labels the step in results and golden files.
	Name string `yaml:"name,omitempty"`

	// Table is the table the step runs on. It defaults to the model's table.
	Table string `yaml:"table,omitempty"`

	// Model names the model whose allow-lists translate Request.
	Model string `yaml:"model,omitempty"`

	// Request is the untrusted request map for reads.
	Request map[string]any `yaml:"request,omitempty"`

	// Write is the row carrying association payloads for writes. It must
	// hold the owner's primary key.
	Write map[string]any `yaml:"write,omitempty"`

	// Delete lists owner keys whose association rows are deleted.
	Delete []any `yaml:"delete,omitempty"`

	// Expect specifies the expected outcome. If nil, the step only has to
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step kinds.
const (
	KindRead   = "read"
	KindWrite  = "write"
	KindDelete = "delete"
)

// Kind reports what the step does.
func (s Step) Kind() string {
	switch {
	case s.Write != nil:
		return KindWrite
	case s.Delete != nil:
		return KindDelete
	default:
		return KindRead
	}
}

// Expect specifies expected step results.
type Expect struct {
	// SQL is the exact root statement a read renders.
	SQL string `yaml:"sql,omitempty"`

	// Params are the root statement's parameters, in order.
	Params []any `yaml:"params,omitempty"`

	// RowCount is the number of top-level rows a read returns.
	RowCount *int `yaml:"row_count,omitempty"`

	// Rows are compared with the returned rows position by position. This
	// is a subset match: only specified fields are validated, nested
	// association rows included.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Error is a substring the step's error must contain. When set the
	// step is expected to fail.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Schema path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its kind.
func validateStep(index int, s *Step) error {
	if s.Table == "" && s.Model == "" {
		return fmt.Errorf("steps[%d]: table or model is required", index)
	}

	kind := s.Kind()
	if s.Write != nil && s.Delete != nil {
		return fmt.Errorf("steps[%d]: write and delete are mutually exclusive", index)
	}
	if kind != KindRead && s.Request != nil {
		return fmt.Errorf("steps[%d]: request is only allowed on reads", index)
	}
	if kind == KindDelete && len(s.Delete) == 0 {
		return fmt.Errorf("steps[%d]: delete needs at least one key", index)
	}

	if e := s.Expect; e != nil && kind != KindRead {
		if e.SQL != "" || e.Params != nil || e.RowCount != nil || e.Rows != nil {
			return fmt.Errorf("steps[%d].expect: only error may be expected from a %s", index, kind)
		}
	}
	if e := s.Expect; e != nil && e.RowCount != nil && *e.RowCount < 0 {
		return fmt.Errorf("steps[%d].expect: row_count must be non-negative", index)
	}
	return nil
}
