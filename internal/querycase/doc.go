// Package querycase builds SELECT statements from free-form SQL fragments.
//
// A Case is a tree: the root names the table being read, children name the
// tables joined to it. Callers append raw fragments (select items, WHERE
// conditions, ordering) and the case qualifies bare column references with
// the right table alias when it renders:
//
//	c := querycase.New("users")
//	c.Select("id, name").Filter("age >= ?", 18)
//	c.Join("profiles", "profile").On(":id = user_id").In("")
//	sql, params, err := c.Build()
//
// Prefixing is lexical, not a parse. Two passes run over every fragment:
//
//  1. A structural pass qualifies every bare field with the node's alias,
//     skipping function names, qualifiers, literals, reserved words and
//     aliases.
//  2. A marker pass rewrites `.col` to the node's alias, `:col` to the parent
//     alias and `!col` to an unqualified column.
//
// A root with no joins has nothing to disambiguate and only has markers
// stripped.
//
// Joined children may carry a result prefix. Their selected columns are then
// aliased `prefix.col`, so flat rows can be exploded back into nested maps
// (see ir.Explode).
//
// Options are shared by reference across one tree and copied by Clone, so a
// template can be cloned per request and mutated freely.
package querycase
