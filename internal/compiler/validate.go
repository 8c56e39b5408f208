package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/qcase/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Table errors (E101-E104)
	ErrTablePrimaryKey = "E101" // primary key missing or not a column
	ErrTableNoColumns  = "E102" // at least one column required
	ErrDuplicateName   = "E103" // duplicate association name
	ErrStateField      = "E104" // state column not declared

	// Association errors (E110-E119)
	ErrAssocTable      = "E110" // target table not defined
	ErrAssocForeignKey = "E111" // foreign key missing or not a column
	ErrAssocPrimaryKey = "E112" // primary key override not a column
	ErrAssocType       = "E113" // unknown association type
	ErrAssocJoin       = "E114" // unknown or unsupported join mode
	ErrAssocUnique     = "E115" // unique column not in target table

	// Model errors (E120-E129)
	ErrModelTable = "E120" // model table not defined
	ErrModelField = "E121" // malformed allow-list entry
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled metadata against schema rules.
// Returns all errors found (does not fail-fast).
//
// A whole *ir.Schema is checked table by table, then model by model, in name
// order. A lone table or model is checked against itself only, so
// references to other tables are not resolved.
func Validate(v any) []ValidationError {
	switch val := v.(type) {
	case *ir.Schema:
		return validateSchema(val)
	case *ir.Table:
		return validateTable(val, nil)
	case *ir.Model:
		return validateModel(val, nil)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateSchema(s *ir.Schema) []ValidationError {
	var errs []ValidationError
	for _, name := range s.TableNames() {
		errs = append(errs, validateTable(s.Tables[name], s)...)
	}
	for _, name := range s.ModelNames() {
		errs = append(errs, validateModel(s.Models[name], s)...)
	}
	return errs
}

// validateTable validates one table. s resolves association targets; nil
// skips every check that needs another table.
func validateTable(t *ir.Table, s *ir.Schema) []ValidationError {
	var errs []ValidationError
	prefix := "tables." + t.Name

	// E102: at least one column required
	if len(t.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".columns",
			Message: "at least one column is required",
			Code:    ErrTableNoColumns,
		})
	}

	// E101: primary key must be a declared column
	if t.PrimaryKey == "" || (len(t.Columns) > 0 && !t.HasField(t.PrimaryKey)) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".primary_key",
			Message: fmt.Sprintf("primary key %q is not a declared column", t.PrimaryKey),
			Code:    ErrTablePrimaryKey,
		})
	}

	// E104: state column must be declared
	if t.StateField != "" && !t.HasField(t.StateField) {
		errs = append(errs, ValidationError{
			Field:   prefix + ".state_field",
			Message: fmt.Sprintf("state column %q is not declared", t.StateField),
			Code:    ErrStateField,
		})
	}

	// E115: the table's own unique key
	for _, col := range t.Unique() {
		if !t.HasField(col) {
			errs = append(errs, ValidationError{
				Field:   prefix + `.assocs."@".unique`,
				Message: fmt.Sprintf("unique column %q is not declared", col),
				Code:    ErrAssocUnique,
			})
		}
	}

	errs = append(errs, validateAssocs(t, t.Assocs, prefix+".assocs", s)...)
	return errs
}

// validateAssocs validates descriptors owned by table, recursing into nested
// descriptors with their target as the owner.
func validateAssocs(owner *ir.Table, assocs []ir.Assoc, prefix string, s *ir.Schema) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)

	for _, a := range assocs {
		field := prefix + "." + a.Name

		// E103: duplicate association name
		if names[a.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate association name: %q", a.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[a.Name] = true

		// E113: known type
		if _, ok := ir.ParseAssocType(string(a.Type)); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("unknown association type %q", a.Type),
				Code:    ErrAssocType,
			})
		}

		// E114: known join, never CROSS, and to-many never joined
		switch mode, ok := ir.ParseJoinMode(string(a.Join)); {
		case !ok:
			errs = append(errs, ValidationError{
				Field:   field + ".join",
				Message: fmt.Sprintf("unknown join mode %q", a.Join),
				Code:    ErrAssocJoin,
			})
		case mode == ir.JoinCross:
			errs = append(errs, ValidationError{
				Field:   field + ".join",
				Message: "CROSS join is not supported for associations",
				Code:    ErrAssocJoin,
			})
		case mode.IsJoin() && a.Type.ToMany():
			errs = append(errs, ValidationError{
				Field:   field + ".join",
				Message: fmt.Sprintf("%s association can not be joined, leave join empty or use MERGE", a.Type),
				Code:    ErrAssocJoin,
			})
		}

		// E111: foreign key required
		if a.ForeignKey == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".foreign_key",
				Message: "foreign key is required",
				Code:    ErrAssocForeignKey,
			})
		}

		if s == nil {
			continue
		}

		// E110: target table must exist
		target, ok := s.Tables[a.Target()]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".table",
				Message: fmt.Sprintf("table %q is not defined", a.Target()),
				Code:    ErrAssocTable,
			})
			continue
		}

		// BELONGS_TO keeps the foreign key on the owner and the primary key
		// on the target; HAS_* the other way round
		fkSide, pkSide := target, owner
		if a.Type == ir.BelongsTo {
			fkSide, pkSide = owner, target
		}
		if a.ForeignKey != "" && !fkSide.HasField(a.ForeignKey) {
			errs = append(errs, ValidationError{
				Field:   field + ".foreign_key",
				Message: fmt.Sprintf("foreign key %q is not a column of %q", a.ForeignKey, fkSide.Name),
				Code:    ErrAssocForeignKey,
			})
		}
		if a.PrimaryKey != "" && !pkSide.HasField(a.PrimaryKey) {
			errs = append(errs, ValidationError{
				Field:   field + ".primary_key",
				Message: fmt.Sprintf("primary key %q is not a column of %q", a.PrimaryKey, pkSide.Name),
				Code:    ErrAssocPrimaryKey,
			})
		}

		// E115: unique columns live on the target
		for _, col := range a.Unique {
			if !target.HasField(col) {
				errs = append(errs, ValidationError{
					Field:   field + ".unique",
					Message: fmt.Sprintf("unique column %q is not a column of %q", col, target.Name),
					Code:    ErrAssocUnique,
				})
			}
		}

		errs = append(errs, validateAssocs(target, a.Assocs, field+".assocs", s)...)
	}
	return errs
}

// allowEntryPattern matches allow-list entries: a dotted field name, or a
// name bound to an expression with "name:expr", optionally marked "+" or "-"
// to adjust the listable fields.
var allowEntryPattern = regexp.MustCompile(`^[+-]?\s*\w+(\.\w+)*(:.+)?$`)

func validateModel(m *ir.Model, s *ir.Schema) []ValidationError {
	var errs []ValidationError
	prefix := "models." + m.Name

	// E120: table must exist
	if s != nil {
		if _, ok := s.Tables[m.Table]; !ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".table",
				Message: fmt.Sprintf("table %q is not defined", m.Table),
				Code:    ErrModelTable,
			})
		}
	}

	// E121: allow-list entries must be well formed
	for _, list := range []struct {
		name    string
		entries []string
	}{
		{"listable", m.Listable},
		{"sortable", m.Sortable},
		{"findable", m.Findable},
		{"filtable", m.Filtable},
		{"saveable", m.Saveable},
	} {
		for i, e := range list.entries {
			if !allowEntryPattern.MatchString(strings.TrimSpace(e)) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.%s[%d]", prefix, list.name, i),
					Message: fmt.Sprintf("malformed allow-list entry %q", e),
					Code:    ErrModelField,
				})
			}
		}
	}
	return errs
}
