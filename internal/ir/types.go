package ir

import (
	"fmt"
	"sort"
)

// Column describes one table column. Type is informational only.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Table is trusted table metadata.
type Table struct {
	Name       string   `json:"name"`
	PrimaryKey string   `json:"primary_key"`
	Columns    []Column `json:"columns"`
	Assocs     []Assoc  `json:"assocs,omitempty"`

	// Defaults is the "@" descriptor: overrides applied to the root case of a
	// fetch and the table's own unique key.
	Defaults *Assoc `json:"defaults,omitempty"`

	// StateField names the status column, if the table has one.
	StateField string            `json:"state_field,omitempty"`
	States     map[string]string `json:"states,omitempty"`
}

// Fields returns the column names in declaration order.
func (t *Table) Fields() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// HasField reports whether the table declares the named column.
func (t *Table) HasField(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// State returns the named state value, e.g. State("default").
func (t *Table) State(name string) (string, bool) {
	if t.States == nil {
		return "", false
	}
	v, ok := t.States[name]
	return v, ok
}

// Unique returns the table's own uniqueness key from the "@" descriptor.
func (t *Table) Unique() []string {
	if t.Defaults == nil {
		return nil
	}
	return t.Defaults.Unique
}

// Assoc returns the top-level association with the given name.
func (t *Table) Assoc(name string) (Assoc, bool) {
	for _, a := range t.Assocs {
		if a.Name == name {
			return a, true
		}
	}
	return Assoc{}, false
}

// Model is a table plus per-purpose field lists for request translation.
// A nil list means the purpose is not configured by the model.
type Model struct {
	Name     string   `json:"name"`
	Table    string   `json:"table"`
	Listable []string `json:"listable,omitempty"`
	Sortable []string `json:"sortable,omitempty"`
	Findable []string `json:"findable,omitempty"`
	Filtable []string `json:"filtable,omitempty"`
	Saveable []string `json:"saveable,omitempty"`
}

// Catalog resolves table metadata by name.
type Catalog interface {
	Table(name string) (*Table, error)
}

// Schema is a compiled set of tables and models. It implements Catalog.
type Schema struct {
	Tables map[string]*Table `json:"tables"`
	Models map[string]*Model `json:"models,omitempty"`
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{
		Tables: make(map[string]*Table),
		Models: make(map[string]*Model),
	}
}

// Table implements Catalog.
func (s *Schema) Table(name string) (*Table, error) {
	t, ok := s.Tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q is not defined", name)
	}
	return t, nil
}

// Model returns the named model.
func (s *Schema) Model(name string) (*Model, error) {
	m, ok := s.Models[name]
	if !ok {
		return nil, fmt.Errorf("model %q is not defined", name)
	}
	return m, nil
}

// TableNames returns table names sorted for deterministic iteration.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for n := range s.Tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ModelNames returns model names sorted for deterministic iteration.
func (s *Schema) ModelNames() []string {
	names := make([]string, 0, len(s.Models))
	for n := range s.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
