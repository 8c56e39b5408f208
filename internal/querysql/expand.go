package querysql

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// walkPlaceholders calls fn for every `?` outside quoted text, passing the
// placeholder index, and copies everything else to the builder.
func walkPlaceholders(sql string, b *strings.Builder, fn func(i int)) int {
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case quote != 0:
			b.WriteByte(ch)
			if ch == '\\' && quote != '`' && i+1 < len(sql) {
				i++
				b.WriteByte(sql[i])
			} else if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			b.WriteByte(ch)
		case ch == '?':
			fn(n)
			n++
		default:
			b.WriteByte(ch)
		}
	}
	return n
}

// Expand rewrites every placeholder bound to a slice into one placeholder per
// element, flattening the parameters to match. An empty slice becomes NULL,
// so `x IN (?)` over nothing matches no rows.
//
// []byte is a scalar. The placeholder count must equal len(params).
func Expand(sql string, params []any) (string, []any, error) {
	if !hasSlice(params) {
		if n := strings.Count(sql, "?"); n == len(params) {
			return sql, params, nil
		}
	}

	var b strings.Builder
	b.Grow(len(sql))
	out := make([]any, 0, len(params))
	n := walkPlaceholders(sql, &b, func(i int) {
		if i >= len(params) {
			b.WriteByte('?')
			return
		}
		vals, ok := sliceValues(params[i])
		if !ok {
			b.WriteByte('?')
			out = append(out, params[i])
			return
		}
		if len(vals) == 0 {
			b.WriteString("NULL")
			return
		}
		b.WriteString(strings.Repeat("?, ", len(vals)-1))
		b.WriteByte('?')
		out = append(out, vals...)
	})
	if n != len(params) {
		return "", nil, fmt.Errorf("statement has %d placeholders but %d params", n, len(params))
	}
	return b.String(), out, nil
}

func hasSlice(params []any) bool {
	for _, p := range params {
		if _, ok := sliceValues(p); ok {
			return true
		}
	}
	return false
}

func sliceValues(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Inline substitutes params as SQL literals. The result is for logs and
// debugging only; it is never executed. Surplus placeholders stay as `?`.
func Inline(sql string, params []any) string {
	var b strings.Builder
	b.Grow(len(sql))
	walkPlaceholders(sql, &b, func(i int) {
		if i >= len(params) {
			b.WriteByte('?')
			return
		}
		b.WriteString(Literal(params[i]))
	})
	return b.String()
}

// Literal renders v as a SQL literal. Slices render as a comma separated
// list, nil and empty slices as NULL.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(x)
	case []byte:
		return quoteString(string(x))
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "NULL"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case time.Time:
		return quoteString(x.UTC().Format(time.RFC3339Nano))
	case fmt.Stringer:
		return quoteString(x.String())
	}
	if vals, ok := sliceValues(v); ok {
		if len(vals) == 0 {
			return "NULL"
		}
		parts := make([]string, len(vals))
		for i, e := range vals {
			parts[i] = Literal(e)
		}
		return strings.Join(parts, ", ")
	}
	return quoteString(fmt.Sprint(v))
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
