// Package queryir is the typed form of an untrusted list request.
//
// A request map carries reserved keys (reply-with, order-by, word, or-group,
// and-group) and filter candidates. ParseRequest splits them; ParseFilter
// turns each filter value into predicates:
//
//	"ada"                      → Compare{eq, "ada"}
//	["a", "", "b"]             → Member{in, [a b]}
//	{"ge": 18, "lt": 65}       → Compare{ge, 18}, Compare{lt, 65}
//	{"in": [1, 2], "x": 3}     → Member{in, [1 2]}, Member{in, [3]}
//
// Predicates say nothing about SQL. The allowlist package maps the field name
// to a trusted expression and querysql compiles the pair into a parameterised
// fragment.
//
// Predicate is a sealed interface using the marker method pattern, so
// compilers can switch exhaustively over Compare, Member and Search.
package queryir
