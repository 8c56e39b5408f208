package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qcase/internal/ir"
)

// defaultsLabel is the descriptor label holding a table's own overrides.
const defaultsLabel = "@"

// CompileTable parses a CUE value into a Table.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the table struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`tables: users: { ... }`)
//	table, err := CompileTable(v.LookupPath(cue.ParsePath("tables.users")))
func CompileTable(v cue.Value) (*ir.Table, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	table := &ir.Table{Name: label(v)}

	// Parse primary key (required)
	pkVal := v.LookupPath(cue.ParsePath("primary_key"))
	if !pkVal.Exists() {
		return nil, &CompileError{
			Field:   "primary_key",
			Message: "primary_key is required",
			Pos:     v.Pos(),
		}
	}
	pk, err := pkVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	table.PrimaryKey = pk

	// Parse columns (required, at least one)
	table.Columns, err = parseColumns(v)
	if err != nil {
		return nil, err
	}
	if len(table.Columns) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     v.Pos(),
		}
	}

	// Parse state column (optional)
	if table.StateField, err = optionalString(v, "state_field"); err != nil {
		return nil, err
	}
	statesVal := v.LookupPath(cue.ParsePath("states"))
	if statesVal.Exists() {
		table.States = make(map[string]string)
		iter, err := statesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			table.States[iter.Label()] = s
		}
	}

	// Parse associations (optional); "@" is the table's own descriptor
	assocsVal := v.LookupPath(cue.ParsePath("assocs"))
	if assocsVal.Exists() {
		assocs, defaults, err := parseAssocs(assocsVal)
		if err != nil {
			return nil, err
		}
		table.Assocs = assocs
		table.Defaults = defaults
	}

	// "defaults" is the long form of "@"
	defaultsVal := v.LookupPath(cue.ParsePath("defaults"))
	if defaultsVal.Exists() {
		if table.Defaults != nil {
			return nil, &CompileError{
				Field:   "defaults",
				Message: `defaults and assocs."@" are mutually exclusive`,
				Pos:     defaultsVal.Pos(),
			}
		}
		d, err := compileOverrides(defaultsVal, ir.Assoc{Name: defaultsLabel})
		if err != nil {
			return nil, err
		}
		table.Defaults = &d
	}

	return table, nil
}

// parseColumns extracts columns in declaration order.
func parseColumns(v cue.Value) ([]ir.Column, error) {
	var columns []ir.Column

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return columns, nil
	}

	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		columns = append(columns, ir.Column{Name: iter.Label(), Type: typ})
	}
	return columns, nil
}

// parseAssocs extracts the descriptors under an assocs struct, in
// declaration order, splitting off the "@" descriptor.
func parseAssocs(v cue.Value) ([]ir.Assoc, *ir.Assoc, error) {
	var (
		assocs   []ir.Assoc
		defaults *ir.Assoc
	)

	iter, err := v.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}
	for iter.Next() {
		if label(iter.Value()) == defaultsLabel {
			d, err := compileOverrides(iter.Value(), ir.Assoc{Name: defaultsLabel})
			if err != nil {
				return nil, nil, err
			}
			defaults = &d
			continue
		}
		a, err := CompileAssoc(iter.Value())
		if err != nil {
			return nil, nil, err
		}
		assocs = append(assocs, a)
	}
	return assocs, defaults, nil
}

// CompileAssoc parses a CUE value into an association descriptor. The
// descriptor name is the struct label.
func CompileAssoc(v cue.Value) (ir.Assoc, error) {
	if err := v.Err(); err != nil {
		return ir.Assoc{}, formatCUEError(err)
	}

	a := ir.Assoc{Name: label(v)}

	// Parse type (required)
	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return a, &CompileError{
			Field:   fmt.Sprintf("assocs.%s.type", a.Name),
			Message: "association type is required",
			Pos:     v.Pos(),
		}
	}
	s, err := typeVal.String()
	if err != nil {
		return a, formatCUEError(err)
	}
	typ, ok := ir.ParseAssocType(s)
	if !ok {
		return a, &CompileError{
			Field:   fmt.Sprintf("assocs.%s.type", a.Name),
			Message: fmt.Sprintf("unknown association type %q", s),
			Pos:     typeVal.Pos(),
		}
	}
	a.Type = typ

	// Parse join (optional)
	joinVal := v.LookupPath(cue.ParsePath("join"))
	if joinVal.Exists() {
		s, err := joinVal.String()
		if err != nil {
			return a, formatCUEError(err)
		}
		mode, ok := ir.ParseJoinMode(s)
		if !ok {
			return a, &CompileError{
				Field:   fmt.Sprintf("assocs.%s.join", a.Name),
				Message: fmt.Sprintf("unknown join mode %q", s),
				Pos:     joinVal.Pos(),
			}
		}
		a.Join = mode
	}

	for _, f := range []struct {
		path string
		dst  *string
	}{
		{"table", &a.TableName},
		{"foreign_key", &a.ForeignKey},
		{"primary_key", &a.PrimaryKey},
	} {
		if *f.dst, err = optionalString(v, f.path); err != nil {
			return a, err
		}
	}

	if a, err = compileOverrides(v, a); err != nil {
		return a, err
	}

	// Parse nested descriptors (optional)
	nestedVal := v.LookupPath(cue.ParsePath("assocs"))
	if nestedVal.Exists() {
		nested, defaults, err := parseAssocs(nestedVal)
		if err != nil {
			return a, err
		}
		if defaults != nil {
			return a, &CompileError{
				Field:   fmt.Sprintf("assocs.%s.assocs", a.Name),
				Message: `"@" is only allowed directly under a table`,
				Pos:     nestedVal.Pos(),
			}
		}
		a.Assocs = nested
	}

	return a, nil
}

// compileOverrides reads the query overrides and write settings shared by
// descriptors and the "@" descriptor.
func compileOverrides(v cue.Value, a ir.Assoc) (ir.Assoc, error) {
	var err error
	for _, f := range []struct {
		path string
		dst  *string
	}{
		{"select", &a.Select},
		{"order_by", &a.OrderBy},
		{"filter", &a.Filter},
		{"group_by", &a.GroupBy},
		{"having", &a.Having},
	} {
		if *f.dst, err = optionalString(v, f.path); err != nil {
			return a, err
		}
	}

	limitVal := v.LookupPath(cue.ParsePath("limit"))
	if limitVal.Exists() {
		n, err := limitVal.Int64()
		if err != nil {
			return a, formatCUEError(err)
		}
		a.Limit = int(n)
	}

	if a.Unique, err = optionalStrings(v, "unique"); err != nil {
		return a, err
	}
	if a.Convey, err = optionalStrings(v, "convey"); err != nil {
		return a, err
	}
	return a, nil
}

// extractTypeName converts CUE type to a column type name.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.FloatKind, cue.NumberKind:
		return "float", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.BytesKind:
		return "bytes", nil
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported column kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// label returns the last path selector, unquoted.
func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	sel := sels[len(sels)-1]
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStrings(v cue.Value, path string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
