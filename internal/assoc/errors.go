package assoc

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes association configuration errors.
type ErrorCode string

const (
	// ErrCodeUnknownType indicates a descriptor type the resolver cannot follow.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"

	// ErrCodeUnknownJoin indicates an unrecognized join mode.
	ErrCodeUnknownJoin ErrorCode = "UNKNOWN_JOIN"

	// ErrCodeCrossJoin indicates a CROSS join on an association.
	ErrCodeCrossJoin ErrorCode = "CROSS_JOIN"

	// ErrCodeNoTable indicates the descriptor's target table is not defined.
	ErrCodeNoTable ErrorCode = "NO_TABLE"

	// ErrCodeBadPayload indicates a sub-payload of the wrong shape.
	ErrCodeBadPayload ErrorCode = "BAD_PAYLOAD"
)

// ConfigError reports a malformed descriptor or payload. It points at a
// defect in the calling code or the schema, never at a data condition.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Assoc   string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Assoc != "" {
		msg += fmt.Sprintf(" (assoc=%s)", e.Assoc)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is matches any *ConfigError with the same code.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	return ok && t.Code == e.Code
}

var (
	ErrUnknownType = &ConfigError{Code: ErrCodeUnknownType, Message: "unrecognized association type"}
	ErrUnknownJoin = &ConfigError{Code: ErrCodeUnknownJoin, Message: "unrecognized association join"}
	ErrCrossJoin   = &ConfigError{Code: ErrCodeCrossJoin, Message: "unsupported association join CROSS"}
	ErrNoTable     = &ConfigError{Code: ErrCodeNoTable, Message: "association table is not defined"}
	ErrBadPayload  = &ConfigError{Code: ErrCodeBadPayload, Message: "association payload has the wrong shape"}
)

func configError(base *ConfigError, assoc string, err error) *ConfigError {
	return &ConfigError{Code: base.Code, Message: base.Message, Assoc: assoc, Err: err}
}

// IsConfigError reports whether err is an association configuration error.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}
