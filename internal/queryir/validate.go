package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPredicate is wrapped by ValidationResult.Err.
var ErrInvalidPredicate = errors.New("invalid predicate")

// ValidationResult reports problems in a predicate list.
type ValidationResult struct {
	// Valid is true when no warnings were raised.
	Valid bool

	// Warnings lists every problem found, in predicate order.
	Warnings []string
}

// Err returns nil for a valid result, otherwise an error wrapping
// ErrInvalidPredicate that lists every warning.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidPredicate, strings.Join(r.Warnings, "; "))
}

// Validate checks predicates built by hand rather than by ParseFilter.
//
// Rules:
//  1. Compare uses a scalar operator and a non-nil, non-collection value
//     (a NULL comparison never matches; use IS NULL in a trusted fragment).
//  2. Member uses in or not-in with at least one value.
//  3. Search has at least one non-blank term.
//
// SQLCompiler.Compile runs it on every predicate before rendering.
func Validate(preds []Predicate) ValidationResult {
	v := &validator{warnings: []string{}}
	for i, p := range preds {
		v.validatePredicate(i, p)
	}
	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validatePredicate(i int, p Predicate) {
	switch pred := p.(type) {
	case Compare:
		v.validateCompare(i, pred)
	case *Compare:
		v.validateCompare(i, *pred)
	case Member:
		v.validateMember(i, pred)
	case *Member:
		v.validateMember(i, *pred)
	case Search:
		v.validateSearch(i, pred)
	case *Search:
		v.validateSearch(i, *pred)
	case nil:
		v.addWarning("predicate %d: nil predicate", i)
	default:
		v.addWarning("predicate %d: unknown predicate type %T", i, p)
	}
}

func (v *validator) validateCompare(i int, c Compare) {
	if !c.Rel.Valid() || c.Rel.Multi() {
		v.addWarning("predicate %d: %q is not a scalar operator", i, c.Rel)
	}
	if c.Value == nil {
		v.addWarning("predicate %d: comparison with NULL never matches", i)
		return
	}
	if _, isMap := asMap(c.Value); isMap || isCollection(c.Value) {
		v.addWarning("predicate %d: operator %q rejects collection value", i, c.Rel)
	}
}

func (v *validator) validateMember(i int, m Member) {
	if !m.Rel.Multi() {
		v.addWarning("predicate %d: %q is not a membership operator", i, m.Rel)
	}
	if len(m.Values) == 0 {
		v.addWarning("predicate %d: empty %s list", i, m.Rel)
	}
}

func (v *validator) validateSearch(i int, s Search) {
	for _, t := range s.Terms {
		if t != "" {
			return
		}
	}
	v.addWarning("predicate %d: search without terms", i)
}
