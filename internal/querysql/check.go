package querysql

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// SyntaxError reports a statement the MySQL grammar rejects.
type SyntaxError struct {
	SQL string
	Err error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %v", e.Err)
}

// Unwrap returns the parser error.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Check parses sql with the MySQL dialect grammar. It catches fragments
// that render to broken text (unbalanced quotes, stray separators) before a
// database sees them. FULL JOIN is not MySQL and always fails here.
func Check(sql string) error {
	stmts, _, err := parser.New().Parse(sql, "", "")
	if err != nil {
		return &SyntaxError{SQL: sql, Err: err}
	}
	if len(stmts) != 1 {
		return &SyntaxError{SQL: sql, Err: fmt.Errorf("expected one statement, got %d", len(stmts))}
	}
	return nil
}
