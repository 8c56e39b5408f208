package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/qcase/internal/compiler"
	"github.com/roach88/qcase/internal/ir"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading schemas from a directory.
type LoadResult struct {
	Schema    *ir.Schema
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchemas loads and compiles the CUE tables and models in dir.
//
// A nil result means the directory could not be loaded at all. Otherwise
// the result holds every table and model that compiled, and the returned
// errors describe the ones that did not (only the first with
// LoadModeFailFast).
func LoadSchemas(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schemas directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schemas directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, err := compiler.LoadDir(dir)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: compileErr.Message, Pos: compileErr.Pos}}
		}
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}}
	}

	schema, compileErrs := compiler.CompileSchema(value, mode == LoadModeFailFast)
	errs := make([]error, 0, len(compileErrs))
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err))
	}
	return &LoadResult{Schema: schema, FileCount: len(cueFiles)}, errs
}

// loadSchema is LoadSchemas in fail-fast mode returning a single error.
func loadSchema(dir string) (*ir.Schema, error) {
	result, errs := LoadSchemas(dir, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result.Schema, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
// Schema validation codes (E1xx) are defined by the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeBadRequest  = "E008" // Request rejected or malformed
	ErrCodeDatabase    = "E009" // Database open or query error
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "primary_key":
		return compiler.ErrTablePrimaryKey
	case field == "columns":
		return compiler.ErrTableNoColumns
	case field == "type" || strings.HasSuffix(field, ".type"):
		return compiler.ErrAssocType
	case strings.HasSuffix(field, ".join"):
		return compiler.ErrAssocJoin
	case field == "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
