package ir

import (
	"context"
	"errors"
	"fmt"
)

// Link executes rendered statements. Placeholders are `?`; a slice bound to a
// single placeholder expands to a multi-valued list (for IN (?)).
//
// start and limit are pagination bounds; limit 0 means unbounded.
type Link interface {
	FetchOne(ctx context.Context, sql string, params ...any) (Row, error)
	Fetch(ctx context.Context, sql string, start, limit int, params ...any) ([]Row, error)
	Query(ctx context.Context, sql string, start, limit int, params ...any) (Cursor, error)
	Insert(ctx context.Context, table string, row Row) (int64, error)
	Update(ctx context.Context, table string, row Row, where string, params ...any) (int64, error)
	Delete(ctx context.Context, table string, where string, params ...any) (int64, error)
}

// Cursor streams rows from a Query. Callers must Close it.
type Cursor interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// ExecError wraps every failure reported by a Link.
type ExecError struct {
	Op  string
	SQL string
	Err error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	if e.SQL != "" {
		return fmt.Sprintf("%s failed: %v (sql=%s)", e.Op, e.Err, e.SQL)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the driver error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// IsExecError reports whether err came from a Link.
func IsExecError(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee)
}
