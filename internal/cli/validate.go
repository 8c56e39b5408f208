package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qcase/internal/compiler"
	"github.com/roach88/qcase/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Tables   int                        `json:"tables"`
	Models   int                        `json:"models"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schemas-dir]",
		Short: "Validate table and model schemas",
		Long: `Compile CUE table and model schemas and check them for consistency.

Reports every compile and validation error with its code, and warns about
association chains that cascade back into a table they started from.

Exit codes:
  0 - Schemas valid (warnings allowed)
  1 - Validation failed
  2 - Command error (directory not found, no CUE files, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, rootOpts.schemasDir(args), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemasDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadSchemas(schemasDir, LoadModeCollectAll)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, schemasDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, toValidationError(err))
	}

	schema := loadResult.Schema
	for _, name := range schema.TableNames() {
		formatter.VerboseLog("Validating table: %s", name)
	}
	for _, name := range schema.ModelNames() {
		formatter.VerboseLog("Validating model: %s", name)
	}
	validationErrors = append(validationErrors, compiler.Validate(schema)...)

	var warnings []string
	for _, w := range compiler.AnalyzeCycles(schema) {
		warnings = append(warnings, w.Message)
	}

	result := ValidationResult{
		Valid:    len(validationErrors) == 0,
		Tables:   len(schema.Tables),
		Models:   len(schema.Models),
		Errors:   validationErrors,
		Warnings: warnings,
	}
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func toValidationError(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		line := 0
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return compiler.ValidationError{
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
			Line:    line,
		}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	writeWarnings(formatter, result.Warnings)
	fmt.Fprintf(formatter.Writer, "✓ All schemas valid (%d tables, %d models)\n", result.Tables, result.Models)
	return nil
}

// outputLoadError reports a schema directory that could not be loaded.
// These are command-level errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	writeWarnings(formatter, result.Warnings)

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func writeWarnings(formatter *OutputFormatter, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s\n", w)
	}
}

// ValidateSchemasDir validates all schemas in a directory.
// This is a helper function for external callers.
func ValidateSchemasDir(schemasDir string) (*ir.Schema, []compiler.ValidationError, error) {
	loadResult, loadErrors := LoadSchemas(schemasDir, LoadModeCollectAll)
	if loadResult == nil {
		return nil, nil, loadErrors[0]
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrors {
		errs = append(errs, toValidationError(err))
	}
	errs = append(errs, compiler.Validate(loadResult.Schema)...)
	return loadResult.Schema, errs, nil
}
