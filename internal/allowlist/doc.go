// Package allowlist is the boundary between untrusted request data and SQL.
//
// An Allowlist maps public field names to trusted SQL expressions, one list
// per purpose (listable, sortable, findable, filtable, saveable). Trans
// translates a request map into calls on a cloned query case:
//
//	a := allowlist.New(querycase.New("users")).
//		Allow(allowlist.Listable, "name", "age")
//	c, err := a.Trans(map[string]any{
//		"reply-with": "name",
//		"age":        map[string]any{"ge": 18},
//	})
//
// Request strings only ever become bound parameters or lookup keys into the
// allow-list. Unknown names, blank values and empty collections are dropped.
package allowlist
