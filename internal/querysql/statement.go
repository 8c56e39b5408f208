package querysql

import (
	"fmt"
	"math"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Quote quotes an identifier with backticks, doubling embedded backticks.
func Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// columns returns the row keys sorted, so statements are deterministic.
func columns(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// InsertSQL builds an INSERT of row into table.
func InsertSQL(table string, row map[string]any) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("insert into %s: empty row", table)
	}
	cols := columns(row)
	quoted := make([]string, len(cols))
	vals := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = Quote(c)
		vals[i] = row[c]
	}
	return sq.Insert(Quote(table)).
		Columns(quoted...).
		Values(vals...).
		PlaceholderFormat(sq.Question).
		ToSql()
}

// UpdateSQL builds an UPDATE setting row on table rows matching where.
// where is trusted text with `?` placeholders for params; empty means every
// row.
func UpdateSQL(table string, row map[string]any, where string, params ...any) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("update %s: empty row", table)
	}
	b := sq.Update(Quote(table)).PlaceholderFormat(sq.Question)
	for _, c := range columns(row) {
		b = b.Set(Quote(c), row[c])
	}
	if strings.TrimSpace(where) != "" {
		b = b.Where(sq.Expr(where, params...))
	}
	return b.ToSql()
}

// DeleteSQL builds a DELETE of table rows matching where.
func DeleteSQL(table string, where string, params ...any) (string, []any, error) {
	b := sq.Delete(Quote(table)).PlaceholderFormat(sq.Question)
	if strings.TrimSpace(where) != "" {
		b = b.Where(sq.Expr(where, params...))
	}
	return b.ToSql()
}

// Paginate appends LIMIT/OFFSET. A non-positive limit with a positive start
// uses the largest row count both SQLite and MySQL accept.
func Paginate(sql string, start, limit int) string {
	switch {
	case limit > 0 && start > 0:
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, limit, start)
	case limit > 0:
		return fmt.Sprintf("%s LIMIT %d", sql, limit)
	case start > 0:
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, int64(math.MaxInt64), start)
	}
	return sql
}
