package queryir

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Request is an untrusted request map split into its translation steps.
// Field names in it are lookup keys only; they never reach SQL text.
type Request struct {
	ReplyWith []string
	OrderBy   []string
	Words     []string
	OrGroups  []map[string]any
	AndGroups []map[string]any
	// Filters holds every non-reserved key.
	Filters map[string]any
}

// ParseRequest splits raw into reserved steps and filter candidates. raw is
// not modified.
func ParseRequest(raw map[string]any) *Request {
	r := &Request{Filters: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case KeyReplyWith:
			r.ReplyWith = Terms(v)
		case KeyOrderBy:
			r.OrderBy = Terms(v)
		case KeyWord:
			r.Words = Words(v)
		case KeyOrGroup:
			r.OrGroups = Groups(v)
		case KeyAndGroup:
			r.AndGroups = Groups(v)
		default:
			r.Filters[k] = v
		}
	}
	return r
}

var (
	termSep = regexp.MustCompile(`[\s,;+]+`)
	wordSep = regexp.MustCompile(`\s+`)
)

// Terms reads a field-name list. A string is split on commas, semicolons,
// plus signs and whitespace; a collection contributes each element. Blank and
// repeated terms are dropped, first occurrence wins.
//
// A leading "-" survives splitting, so "name,-age" yields [name -age].
func Terms(v any) []string {
	return splitList(v, termSep)
}

// Words reads free-text search terms. Only whitespace separates words.
func Words(v any) []string {
	return splitList(v, wordSep)
}

func splitList(v any, sep *regexp.Regexp) []string {
	var parts []string
	switch {
	case v == nil:
		return nil
	case isCollection(v):
		for _, e := range collectionValues(v) {
			parts = append(parts, sep.Split(cast.ToString(e), -1)...)
		}
	default:
		parts = sep.Split(cast.ToString(v), -1)
	}

	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Groups reads an or-group/and-group value: a list of maps, or a map of maps
// keyed by position (form encoding). Entries that are not maps are dropped.
func Groups(v any) []map[string]any {
	var out []map[string]any
	switch {
	case v == nil:
	case isCollection(v):
		for _, e := range collectionValues(v) {
			if m, ok := asMap(e); ok {
				out = append(out, m)
			}
		}
	default:
		m, ok := asMap(v)
		if !ok {
			return nil
		}
		for _, k := range sortedKeys(m) {
			if g, ok := asMap(m[k]); ok {
				out = append(out, g)
			}
		}
	}
	return out
}

// ParseFilter turns one filter value into predicates.
//
//   - nil and "" yield nothing;
//   - a collection yields IN over its non-blank values, nothing if none remain;
//   - an operator map yields one predicate per recognised operator in Rels
//     order, then IN over leftover values;
//   - anything else yields equality.
//
// Collections or maps given to a scalar operator are rejected and reported as
// warnings rather than bound.
func ParseFilter(v any) ([]Predicate, []string) {
	switch {
	case v == nil:
		return nil, nil
	case isCollection(v):
		vals := nonBlank(collectionValues(v))
		if len(vals) == 0 {
			return nil, nil
		}
		return []Predicate{Member{Rel: RelIn, Values: vals}}, nil
	}

	m, ok := asMap(v)
	if !ok {
		if s, isStr := v.(string); isStr && s == "" {
			return nil, nil
		}
		return []Predicate{Compare{Rel: RelEq, Value: v}}, nil
	}

	var preds []Predicate
	var warnings []string
	for _, rel := range Rels {
		x, ok := m[string(rel)]
		if !ok || x == nil {
			continue
		}
		if rel.Multi() {
			var vals []any
			if isCollection(x) {
				vals = nonBlank(collectionValues(x))
			} else {
				vals = nonBlank([]any{x})
			}
			if len(vals) > 0 {
				preds = append(preds, Member{Rel: rel, Values: vals})
			}
			continue
		}
		if _, isMap := asMap(x); isMap || isCollection(x) {
			warnings = append(warnings, fmt.Sprintf("operator %q rejects collection value %v", rel, x))
			continue
		}
		preds = append(preds, Compare{Rel: rel, Value: x})
	}

	var rest []any
	seen := make(map[any]bool)
	for _, k := range sortedKeys(m) {
		if k == "" || IsReserved(k) || Rel(k).Valid() {
			continue
		}
		x := m[k]
		if x == nil || x == "" || !reflect.TypeOf(x).Comparable() || seen[x] {
			continue
		}
		seen[x] = true
		rest = append(rest, x)
	}
	if len(rest) > 0 {
		preds = append(preds, Member{Rel: RelIn, Values: rest})
	}
	return preds, warnings
}

func isCollection(v any) bool {
	if v == nil {
		return false
	}
	switch v.(type) {
	case string, []byte:
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func collectionValues(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func nonBlank(vals []any) []any {
	out := make([]any, 0, len(vals))
	for _, x := range vals {
		if x == nil {
			continue
		}
		if s, ok := x.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, x)
	}
	return out
}

// asMap accepts any map keyed by strings, map[string]string and
// map[string][]string included, or by values yaml decodes as keys, and
// returns it as map[string]any.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	if rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	}
	out, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, false
	}
	return out, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
