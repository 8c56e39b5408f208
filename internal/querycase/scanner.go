package querycase

import (
	"regexp"
	"strings"
)

// quoteSkipper tracks whether a walk is inside a quoted string or identifier.
// Single and double quoted strings honour backslash escapes; a doubled quote
// reopens the same string on the next byte.
type quoteSkipper struct {
	quote byte
}

// skip reports whether s[*i] belongs to quoted text and advances *i past an
// escaped byte.
func (q *quoteSkipper) skip(s string, i *int) bool {
	c := s[*i]
	if q.quote == 0 {
		if c == '\'' || c == '"' || c == '`' {
			q.quote = c
			return true
		}
		return false
	}
	if c == '\\' && q.quote != '`' {
		*i++
	} else if c == q.quote {
		q.quote = 0
	}
	return true
}

type unitKind uint8

const (
	unitWord unitKind = iota
	unitIdent
	unitString
	unitStar
	unitClose
)

// unit is one candidate field token. end excludes trailing whitespace, after
// includes it.
type unit struct {
	kind  unitKind
	start int
	end   int
	after int
}

// scanUnits tokenizes s into candidate identifier units: quoted string
// literals, backtick identifiers, bare words, `*` and `)`.
func scanUnits(s string) []unit {
	var units []unit
	n := len(s)
	for i := 0; i < n; {
		c := s[i]
		var u unit
		switch {
		case c == '\'' || c == '"':
			u = unit{kind: unitString, start: i, end: skipQuoted(s, i, c)}
		case c == '`':
			u = unit{kind: unitIdent, start: i, end: skipQuoted(s, i, '`')}
		case isWordByte(c):
			j := i + 1
			for j < n && isWordByte(s[j]) {
				j++
			}
			u = unit{kind: unitWord, start: i, end: j}
		case c == '*':
			u = unit{kind: unitStar, start: i, end: i + 1}
		case c == ')':
			u = unit{kind: unitClose, start: i, end: i + 1}
		default:
			i++
			continue
		}
		u.after = u.end
		for u.after < n && isSpace(s[u.after]) {
			u.after++
		}
		units = append(units, u)
		i = u.end
	}
	return units
}

// skipQuoted returns the index just past the quote closing the one at i.
// A doubled quote or a backslash escape inside a string literal does not
// close it. An unterminated quote runs to the end of s.
func skipQuoted(s string, i int, q byte) int {
	str := q != '`'
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if str {
				j++
			}
		case q:
			if str && j+1 < len(s) && s[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s)
}

// Words that may precede a field without consuming the prefix cursor.
var leadWords = map[string]bool{
	"IS": true, "IN": true, "ON": true, "OR": true, "AND": true, "NOT": true,
	"TOP": true, "CASE": true, "WHEN": true, "THEN": true, "ELSE": true,
	"LIKE": true, "ESCAPE": true, "BETWEEN": true, "DISTINCT": true,
}

// Words after which the next adjacent unit is an alias, never a field.
var tailWords = map[string]bool{
	"AS": true, "END": true, "NULL": true, "TRUE": true, "FALSE": true,
}

func isLeadWord(u unit, text string) bool {
	return u.kind == unitWord && leadWords[strings.ToUpper(text)]
}

func isTailWord(u unit, text string) bool {
	switch u.kind {
	case unitClose:
		return true
	case unitWord:
		return tailWords[strings.ToUpper(text)] || isDigit(text[0])
	}
	return false
}

// qualifyFields is the structural pass: every bare field unit gets the
// backtick-quoted alias prefix. k tracks where the last consuming unit
// ended; a unit starting exactly there is an alias or modifier.
func qualifyFields(s, alias string) string {
	units := scanUnits(s)
	if len(units) == 0 {
		return s
	}

	var b strings.Builder
	prefix := "`" + alias + "`."
	last, k := 0, -1
	for _, u := range units {
		i, j := u.start, u.after
		if j < len(s) {
			if r := s[j]; r == '.' || r == '(' || r == '{' {
				k = j
				continue
			}
		}
		if i > 0 {
			if r := s[i-1]; r == '.' || r == ':' || r == '!' {
				k = j
				continue
			}
		}

		text := s[u.start:u.end]
		switch {
		case u.kind == unitString:
			k = j
		case u.kind == unitStar:
			if k != i {
				k = j
			}
		case isLeadWord(u, text):
		case isTailWord(u, text):
			k = j
		case k == i:
			k = j
		default:
			k = j
			b.WriteString(s[last:i])
			b.WriteString(prefix)
			last = i
		}
	}
	b.WriteString(s[last:])
	return b.String()
}

// rewriteSigils is the legacy marker pass. A `.`, `:` or `!` not preceded by a
// word character or backtick and followed by a backtick identifier, a word or
// `*` is rewritten: `.` to the current alias, `:` to the parent alias, `!`
// dropped. With strip set every marker is dropped.
func rewriteSigils(s, alias, parent string, strip bool) string {
	if !strings.ContainsAny(s, ".:!") {
		return s
	}

	var b strings.Builder
	var q quoteSkipper
	last := 0
	for i := 0; i < len(s); i++ {
		if q.skip(s, &i) {
			continue
		}
		c := s[i]
		if c != '.' && c != ':' && c != '!' {
			continue
		}
		if i > 0 && (isWordByte(s[i-1]) || s[i-1] == '`') {
			continue
		}
		end := sigilTarget(s, i+1)
		if end < 0 {
			continue
		}

		b.WriteString(s[last:i])
		switch {
		case strip || c == '!':
		case c == '.':
			b.WriteString("`" + alias + "`.")
		case c == ':':
			if parent != "" {
				b.WriteString("`" + parent + "`.")
			}
		}
		b.WriteString(s[i+1 : end])
		last = end
		i = end - 1
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// sigilTarget returns the end of the token a marker applies to, or -1.
func sigilTarget(s string, i int) int {
	if i >= len(s) {
		return -1
	}
	switch c := s[i]; {
	case c == '`':
		end := strings.IndexByte(s[i+1:], '`')
		if end <= 0 {
			return -1
		}
		return i + 1 + end + 1
	case c == '*':
		return i + 1
	case isWordByte(c):
		j := i + 1
		for j < len(s) && isWordByte(s[j]) {
			j++
		}
		return j
	}
	return -1
}

// splitTopLevel splits s after every comma outside quotes and parentheses.
// Each piece keeps its trailing comma so joining the pieces restores s.
func splitTopLevel(s string) []string {
	var parts []string
	var q quoteSkipper
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		if q.skip(s, &i) {
			continue
		}
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i+1])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

// trailingField matches the identifier ending a select item, with the token
// before it when the identifier is an alias.
var trailingField = regexp.MustCompile("(['\"`\\w)]\\s+)?(?:(\\w+)|`(\\w+)`)(\\s*,?$)")

// aliasColumns applies result-prefix aliasing to each top-level select item:
// an unaliased column gets `AS `prefix.col``, a plain alias is renamed to
// `prefix.alias`. Items ending in a dotted alias or no identifier are kept.
func aliasColumns(s, prefix string) string {
	parts := splitTopLevel(s)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(aliasColumn(p, prefix))
	}
	return b.String()
}

func aliasColumn(item, prefix string) string {
	m := trailingField.FindStringSubmatchIndex(item)
	if m == nil {
		return item
	}
	name := ""
	if m[4] >= 0 {
		name = item[m[4]:m[5]]
	} else {
		name = item[m[6]:m[7]]
	}
	var repl string
	if m[2] < 0 {
		repl = "`" + name + "` AS `" + prefix + "." + name + "`"
	} else {
		repl = item[m[2]:m[3]] + "`" + prefix + "." + name + "`"
	}
	return item[:m[0]] + repl + item[m[8]:m[9]] + item[m[1]:]
}

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
