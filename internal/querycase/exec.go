package querycase

import (
	"context"

	"github.com/roach88/qcase/internal/ir"
)

// Use attaches the Link terminal operations run against.
func (c *Case) Use(link ir.Link) *Case {
	c.link = link
	return c
}

// Link returns the attached Link, nil if none.
func (c *Case) Link() ir.Link { return c.link }

func (c *Case) needLink() error {
	if c.link == nil {
		return &Error{Code: ErrCodeNoLink, Message: ErrNoLink.Message, Alias: c.Alias()}
	}
	return nil
}

// One fetches the first row at Start, or nil when there is none. Without an
// offset it goes through Link.FetchOne.
func (c *Case) One(ctx context.Context) (ir.Row, error) {
	if err := c.needLink(); err != nil {
		return nil, err
	}
	sql, params, err := c.Build()
	if err != nil {
		return nil, err
	}
	var row ir.Row
	if start := c.Start(); start == 0 {
		row, err = c.link.FetchOne(ctx, sql, params...)
	} else {
		var rows []ir.Row
		if rows, err = c.link.Fetch(ctx, sql, start, 1, params...); len(rows) > 0 {
			row = rows[0]
		}
	}
	if err != nil || row == nil {
		return nil, err
	}
	return ir.Explode(row), nil
}

// All fetches every row within the limit, exploded into nested rows.
func (c *Case) All(ctx context.Context) ([]ir.Row, error) {
	if err := c.needLink(); err != nil {
		return nil, err
	}
	sql, params, err := c.Build()
	if err != nil {
		return nil, err
	}
	rows, err := c.link.Fetch(ctx, sql, c.Start(), c.Count(), params...)
	if err != nil {
		return nil, err
	}
	return ir.ExplodeAll(rows), nil
}

// Iter streams rows within the limit. The caller must close the cursor.
func (c *Case) Iter(ctx context.Context) (ir.Cursor, error) {
	if err := c.needLink(); err != nil {
		return nil, err
	}
	sql, params, err := c.Build()
	if err != nil {
		return nil, err
	}
	cur, err := c.link.Query(ctx, sql, c.Start(), c.Count(), params...)
	if err != nil {
		return nil, err
	}
	return &nestedCursor{Cursor: cur}, nil
}

// nestedCursor explodes each row of the underlying cursor.
type nestedCursor struct {
	ir.Cursor
	row ir.Row
}

func (n *nestedCursor) Next() bool {
	if !n.Cursor.Next() {
		n.row = nil
		return false
	}
	n.row = ir.Explode(n.Cursor.Row())
	return true
}

func (n *nestedCursor) Row() ir.Row { return n.row }

// Delete removes root table rows matching the root WHERE fragment. Join
// conditions and join parameters are never part of a direct mutation.
func (c *Case) Delete(ctx context.Context) (int64, error) {
	if err := c.mutable(); err != nil {
		return 0, err
	}
	return c.link.Delete(ctx, c.table, c.rootWhere(), c.wparams...)
}

// Update sets row on root table rows matching the root WHERE fragment.
func (c *Case) Update(ctx context.Context, row ir.Row) (int64, error) {
	if err := c.mutable(); err != nil {
		return 0, err
	}
	return c.link.Update(ctx, c.table, row, c.rootWhere(), c.wparams...)
}

// Insert adds row to the root table.
func (c *Case) Insert(ctx context.Context, row ir.Row) (int64, error) {
	if err := c.mutable(); err != nil {
		return 0, err
	}
	return c.link.Insert(ctx, c.table, row)
}

func (c *Case) mutable() error {
	if c.table == "" {
		return &Error{Code: ErrCodeNoTable, Message: ErrNoTable.Message, Alias: c.alias}
	}
	return c.needLink()
}
