package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/qcase/internal/queryir"
)

// SQLCompiler compiles request predicates against trusted SQL expressions.
//
// CRITICAL: All values are parameterized, never interpolated. The expression
// comes from an allow-list authored by configuration; the predicate comes
// from the request and only ever contributes placeholders.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

var relOps = map[queryir.Rel]string{
	queryir.RelEq:    "=",
	queryir.RelNe:    "!=",
	queryir.RelGt:    ">",
	queryir.RelGe:    ">=",
	queryir.RelLt:    "<",
	queryir.RelLe:    "<=",
	queryir.RelIn:    "IN",
	queryir.RelNotIn: "NOT IN",
}

// Compile renders p applied to expr as a WHERE fragment.
// Predicates failing queryir.Validate are rejected with an error wrapping
// queryir.ErrInvalidPredicate.
func (c *SQLCompiler) Compile(expr string, p queryir.Predicate) (string, []any, error) {
	if strings.TrimSpace(expr) == "" {
		return "", nil, fmt.Errorf("cannot compile predicate against empty expression")
	}
	if err := queryir.Validate([]queryir.Predicate{p}).Err(); err != nil {
		return "", nil, err
	}

	switch pred := p.(type) {
	case queryir.Compare:
		return c.compileCompare(expr, pred)
	case *queryir.Compare:
		return c.compileCompare(expr, *pred)
	case queryir.Member:
		return c.compileMember(expr, pred)
	case *queryir.Member:
		return c.compileMember(expr, *pred)
	case queryir.Search:
		return c.compileSearch(expr, pred)
	case *queryir.Search:
		return c.compileSearch(expr, *pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileCompare compiles a scalar comparison to "expr op ?".
// CRITICAL: Value is NEVER interpolated.
func (c *SQLCompiler) compileCompare(expr string, cmp queryir.Compare) (string, []any, error) {
	op, ok := relOps[cmp.Rel]
	if !ok || cmp.Rel.Multi() {
		return "", nil, fmt.Errorf("unsupported comparison operator %q", cmp.Rel)
	}
	return fmt.Sprintf("%s %s ?", expr, op), []any{cmp.Value}, nil
}

// compileMember compiles IN / NOT IN to "expr IN (?)". The value list is
// bound to the single placeholder and expanded by the Link.
func (c *SQLCompiler) compileMember(expr string, m queryir.Member) (string, []any, error) {
	if !m.Rel.Multi() {
		return "", nil, fmt.Errorf("unsupported membership operator %q", m.Rel)
	}
	if len(m.Values) == 0 {
		return "", nil, fmt.Errorf("empty %s list for %s", m.Rel, expr)
	}
	vals := append([]any(nil), m.Values...)
	return fmt.Sprintf("%s %s (?)", expr, relOps[m.Rel]), []any{vals}, nil
}

// compileSearch requires every term as a substring of expr.
func (c *SQLCompiler) compileSearch(expr string, s queryir.Search) (string, []any, error) {
	var parts []string
	var params []any
	for _, t := range s.Terms {
		if t == "" {
			continue
		}
		parts = append(parts, expr+" LIKE ? ESCAPE '/'")
		params = append(params, "%"+EscapeLike(t)+"%")
	}
	switch len(parts) {
	case 0:
		return "", nil, fmt.Errorf("search without terms")
	case 1:
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

var likeEscaper = strings.NewReplacer(
	"/", "//",
	"%", "/%",
	"_", "/_",
	"[", "/[",
	"]", "/]",
)

// EscapeLike escapes LIKE wildcards in term with "/", to be used with
// ESCAPE '/'.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}
