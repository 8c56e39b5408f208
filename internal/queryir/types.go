package queryir

// Rel is a relational operator key accepted in request operator maps.
type Rel string

const (
	RelEq    Rel = "eq"
	RelNe    Rel = "ne"
	RelGt    Rel = "gt"
	RelGe    Rel = "ge"
	RelLt    Rel = "lt"
	RelLe    Rel = "le"
	RelIn    Rel = "in"
	RelNotIn Rel = "not-in"
)

// Rels lists the operators in the order they are translated.
var Rels = []Rel{RelEq, RelNe, RelGt, RelGe, RelLt, RelLe, RelIn, RelNotIn}

// Multi reports whether the operator binds a multi-valued placeholder.
func (r Rel) Multi() bool {
	return r == RelIn || r == RelNotIn
}

// Valid reports whether r is a known operator.
func (r Rel) Valid() bool {
	for _, x := range Rels {
		if x == r {
			return true
		}
	}
	return false
}

// Reserved request keys. Each is consumed by its own translation step and is
// never treated as a field name.
const (
	KeyReplyWith = "reply-with"
	KeyOrderBy   = "order-by"
	KeyWord      = "word"
	KeyOrGroup   = "or-group"
	KeyAndGroup  = "and-group"
)

// ReservedKeys lists every reserved request key.
var ReservedKeys = []string{KeyReplyWith, KeyOrderBy, KeyWord, KeyOrGroup, KeyAndGroup}

// IsReserved reports whether key is a reserved request key.
func IsReserved(key string) bool {
	for _, k := range ReservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Predicate is a condition on one field, independent of the SQL expression
// the field maps to.
//
// This is a sealed interface: only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Compare is a scalar comparison: eq, ne, gt, ge, lt or le.
//
// CRITICAL: Value is always bound as a parameter, never interpolated.
type Compare struct {
	Rel   Rel `json:"rel"`
	Value any `json:"value"`
}

func (Compare) predicateNode() {}

// Member is an IN or NOT IN test over a value list bound to one
// multi-valued placeholder.
type Member struct {
	Rel    Rel   `json:"rel"`
	Values []any `json:"values"`
}

func (Member) predicateNode() {}

// Search matches every term as a substring. Terms are raw; wildcard
// escaping is the compiler's job.
type Search struct {
	Terms []string `json:"terms"`
}

func (Search) predicateNode() {}
