package ir

import "strings"

// Row is one result or payload row keyed by column name.
type Row = map[string]any

// Explode turns dotted keys into nested maps: {"a.b": 1} becomes
// {"a": {"b": 1}}. Undotted keys are copied as is, so exploding an already
// nested row is a no-op.
func Explode(flat Row) Row {
	out := make(Row, len(flat))
	for k, v := range flat {
		if !strings.Contains(k, ".") {
			if _, set := out[k].(map[string]any); set {
				// a nested object already claimed this key
				continue
			}
			out[k] = v
			continue
		}
		put(out, strings.Split(k, "."), v)
	}
	return out
}

// ExplodeAll explodes every row in place of the slice.
func ExplodeAll(rows []Row) []Row {
	for i, r := range rows {
		rows[i] = Explode(r)
	}
	return rows
}

func put(dst Row, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		next, ok := dst[p].(map[string]any)
		if !ok {
			next = make(Row)
			dst[p] = next
		}
		dst = next
	}
	dst[path[len(path)-1]] = v
}

// Lookup reads a value by key, falling back to a dotted path through nested
// maps. The bool is false when any step is missing.
func Lookup(row Row, path string) (any, bool) {
	if v, ok := row[path]; ok {
		return v, true
	}
	if !strings.Contains(path, ".") {
		return nil, false
	}
	var cur any = row
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Owner returns the nested map at path, the row itself for an empty path.
// It returns nil when the path does not lead to a map, which is the case for
// a LEFT join that matched nothing.
func Owner(row Row, path string) Row {
	if path == "" {
		return row
	}
	v, ok := Lookup(row, path)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}
