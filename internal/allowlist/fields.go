package allowlist

import (
	"regexp"
	"strings"
)

// Purpose names what a field list is allowed for.
type Purpose string

const (
	Listable Purpose = "listable"
	Sortable Purpose = "sortable"
	Findable Purpose = "findable"
	Filtable Purpose = "filtable"
	Saveable Purpose = "saveable"
)

// Purposes lists every purpose.
var Purposes = []Purpose{Listable, Sortable, Findable, Filtable, Saveable}

// ParsePurpose accepts a purpose name in any case.
func ParsePurpose(s string) (Purpose, bool) {
	p := Purpose(strings.ToLower(strings.TrimSpace(s)))
	for _, x := range Purposes {
		if x == p {
			return p, true
		}
	}
	return p, false
}

// Field binds a public name to a trusted SQL expression.
type Field struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// Fields is an ordered field list with lookup by name.
type Fields struct {
	list  []Field
	index map[string]int
}

func newFields() *Fields {
	return &Fields{index: make(map[string]int)}
}

// put adds or replaces a field, keeping the position of a replaced one.
func (f *Fields) put(name, expr string) {
	if i, ok := f.index[name]; ok {
		f.list[i].Expr = expr
		return
	}
	f.index[name] = len(f.list)
	f.list = append(f.list, Field{Name: name, Expr: expr})
}

func (f *Fields) clone() *Fields {
	c := &Fields{
		list:  append([]Field(nil), f.list...),
		index: make(map[string]int, len(f.index)),
	}
	for k, v := range f.index {
		c.index[k] = v
	}
	return c
}

func (f *Fields) without(names map[string]bool) *Fields {
	out := newFields()
	for _, fd := range f.list {
		if !names[fd.Name] {
			out.put(fd.Name, fd.Expr)
		}
	}
	return out
}

// Get returns the expression bound to name.
func (f *Fields) Get(name string) (string, bool) {
	i, ok := f.index[name]
	if !ok {
		return "", false
	}
	return f.list[i].Expr, true
}

// Has reports whether name is allowed.
func (f *Fields) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// List returns the fields in allow-list order.
func (f *Fields) List() []Field {
	return append([]Field(nil), f.list...)
}

// Names returns the field names in allow-list order.
func (f *Fields) Names() []string {
	out := make([]string, len(f.list))
	for i, fd := range f.list {
		out[i] = fd.Name
	}
	return out
}

// Len returns the number of fields.
func (f *Fields) Len() int { return len(f.list) }

var (
	// name:expression, where the name is a word or dotted path
	namedSpec = regexp.MustCompile(`^([\w.]+):`)
	// a bare column reference gets quoted and marked for the current alias
	bareColumn = regexp.MustCompile(`^\w+$`)
	// an expression that is a single column of the current table
	columnExpr = regexp.MustCompile("^\\.?`?(\\w+)`?$")
)

// parseSpec splits "name:expression"; without a name the text is both.
func parseSpec(spec string) (name, expr string) {
	if m := namedSpec.FindStringSubmatchIndex(spec); m != nil {
		return spec[m[2]:m[3]], strings.TrimSpace(spec[m[1]:])
	}
	return spec, spec
}

// quoteExpr turns a bare column into a current-alias reference.
func quoteExpr(expr string) string {
	if bareColumn.MatchString(expr) {
		return ".`" + expr + "`"
	}
	return expr
}

// columnOf returns the column name when expr is a plain column reference.
func columnOf(expr string) (string, bool) {
	m := columnExpr.FindStringSubmatch(expr)
	if m == nil {
		return "", false
	}
	return m[1], true
}
