package store

import (
	"context"

	"github.com/roach88/qcase/internal/ir"
	"github.com/roach88/qcase/internal/querysql"
)

// Insert adds row to table and returns the number of rows affected.
func (s *Store) Insert(ctx context.Context, table string, row ir.Row) (int64, error) {
	text, args, err := querysql.InsertSQL(table, row)
	if err != nil {
		return 0, &ir.ExecError{Op: "insert", Err: err}
	}
	return s.exec(ctx, "insert", text, args)
}

// Update sets row on the rows of table matching where.
func (s *Store) Update(ctx context.Context, table string, row ir.Row, where string, params ...any) (int64, error) {
	text, args, err := querysql.UpdateSQL(table, row, where, params...)
	if err != nil {
		return 0, &ir.ExecError{Op: "update", Err: err}
	}
	return s.exec(ctx, "update", text, args)
}

// Delete removes the rows of table matching where.
func (s *Store) Delete(ctx context.Context, table string, where string, params ...any) (int64, error) {
	text, args, err := querysql.DeleteSQL(table, where, params...)
	if err != nil {
		return 0, &ir.ExecError{Op: "delete", Err: err}
	}
	return s.exec(ctx, "delete", text, args)
}
