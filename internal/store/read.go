package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querysql"
)

// FetchOne returns the first row of the statement, or nil when there is none.
func (s *Store) FetchOne(ctx context.Context, sqlText string, params ...any) (ir.Row, error) {
	rows, err := s.Fetch(ctx, sqlText, 0, 1, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Fetch returns every row of the statement within the bounds. limit 0 means
// unbounded.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Fetch(ctx context.Context, sqlText string, start, limit int, params ...any) ([]ir.Row, error) {
	cur, err := s.Query(ctx, sqlText, start, limit, params...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	out := []ir.Row{}
	for cur.Next() {
		out = append(out, cur.Row())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Query streams the rows of the statement within the bounds. Rows are keyed
// by result column name, flat; dotted aliases are left for the caller to
// explode.
func (s *Store) Query(ctx context.Context, sqlText string, start, limit int, params ...any) (ir.Cursor, error) {
	text, args, err := querysql.Expand(sqlText, params)
	if err != nil {
		return nil, &ir.ExecError{Op: "query", SQL: sqlText, Err: err}
	}
	text = querysql.Paginate(text, start, limit)

	begin := time.Now()
	rows, err := s.db.QueryContext(ctx, text, args...)
	s.observe("query", text, len(args), begin, err)
	if err != nil {
		return nil, &ir.ExecError{Op: "query", SQL: text, Err: err}
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, &ir.ExecError{Op: "query", SQL: text, Err: err}
	}
	return &cursor{rows: rows, cols: cols, sql: text}, nil
}

// cursor adapts *sql.Rows to ir.Cursor.
type cursor struct {
	rows *sql.Rows
	cols []string
	sql  string
	row  ir.Row
	err  error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		c.row = nil
		return false
	}

	vals := make([]any, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = err
		c.row = nil
		return false
	}

	row := make(ir.Row, len(c.cols))
	for i, col := range c.cols {
		// TEXT columns arrive as []byte from the MySQL driver
		if b, ok := vals[i].([]byte); ok {
			row[col] = string(b)
		} else {
			row[col] = vals[i]
		}
	}
	c.row = row
	return true
}

func (c *cursor) Row() ir.Row {
	return c.row
}

func (c *cursor) Err() error {
	err := c.err
	if err == nil {
		err = c.rows.Err()
	}
	if err != nil {
		return &ir.ExecError{Op: "query", SQL: c.sql, Err: err}
	}
	return nil
}

func (c *cursor) Close() error {
	return c.rows.Close()
}
