package querycase

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes query case errors.
type ErrorCode string

const (
	// ErrCodeNoTable indicates a node without a table name was rendered.
	ErrCodeNoTable ErrorCode = "NO_TABLE"

	// ErrCodeNoLink indicates a terminal operation without an attached Link.
	ErrCodeNoLink ErrorCode = "NO_LINK"
)

// Error is a configuration error raised by a query case. These indicate a
// defect in the calling code, not a data condition.
type Error struct {
	Code    ErrorCode
	Message string
	Alias   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Alias != "" {
		return fmt.Sprintf("%s: %s (alias=%s)", e.Code, e.Message, e.Alias)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrNoTable is returned when rendering a node that has no table.
	ErrNoTable = &Error{Code: ErrCodeNoTable, Message: "table name can not be empty"}

	// ErrNoLink is returned by terminal operations before Use.
	ErrNoLink = &Error{Code: ErrCodeNoLink, Message: "no link attached"}
)

// IsConfigError reports whether err is a query case configuration error.
func IsConfigError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
