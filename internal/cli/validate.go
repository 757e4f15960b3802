package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/nature/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate specs without loading them",
		Long: `Validate CUE meta and relation declarations.

Checks every row against the schema rules, decodes every active relation
against the declared metas the way the router would, and looks for meta
reference cycles and routing cycles.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := compiler.LoadSpecs(specsDir, compiler.LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return outputValidateError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	// Declarations that failed to compile are reported ahead of row errors.
	var loadValidation []compiler.ValidationError
	for _, err := range loadErrors {
		loadValidation = append(loadValidation, loadErrorToValidation(err))
	}

	result := validateRows(cmd.Context(), loadResult, loadValidation, formatter)

	if len(result.Errors) > 0 {
		result.Valid = false
		return outputValidationErrors(formatter, result)
	}

	return outputValidateSuccess(formatter, result)
}

// validateRows runs the row, reference and cycle checks over a load result,
// appending to prior.
func validateRows(ctx context.Context, loadResult *compiler.LoadResult, prior []compiler.ValidationError, formatter *OutputFormatter) ValidationResult {
	if ctx == nil {
		ctx = context.Background()
	}

	result := ValidationResult{Valid: true, Errors: prior}

	for _, m := range loadResult.Metas {
		formatter.VerboseLog("Validating meta: %s", m.MetaString())
		result.Errors = append(result.Errors, compiler.Validate(m)...)
	}
	for _, r := range loadResult.Relations {
		formatter.VerboseLog("Validating relation: %s -> %s", r.From, r.To)
		result.Errors = append(result.Errors, compiler.Validate(r)...)
	}

	// Earlier errors make decode failures redundant.
	if len(result.Errors) == 0 {
		result.Errors = append(result.Errors,
			compiler.CheckReferences(ctx, loadResult.Metas, loadResult.Relations)...)
	}

	for _, w := range compiler.AnalyzeCycles(loadResult.Metas, loadResult.Relations) {
		if w.Level == compiler.LevelError {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "meta.config",
				Message: w.Message,
				Code:    compiler.ErrMetaReferenceCycle,
			})
			continue
		}
		formatter.VerboseLog("%s: %s", w.Level, w.Message)
		result.Warnings = append(result.Warnings, w)
	}

	return result
}

// loadErrorToValidation converts a loader error into a validation error.
func loadErrorToValidation(err error) compiler.ValidationError {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		field, message := "load", loadErr.Message
		if before, after, ok := strings.Cut(loadErr.Message, ": "); ok {
			field, message = before, after
		}
		return compiler.ValidationError{
			Field:   field,
			Message: message,
			Code:    loadErr.Code,
			Line:    getLineFromCuePos(loadErr.Pos),
		}
	}
	return compiler.ValidationError{
		Field:   "load",
		Message: err.Error(),
		Code:    compiler.ErrCodeGeneric,
	}
}

// getLineFromCuePos extracts line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All specs valid")
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", w.Level, w.Message)
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Validation errors are command-level errors (exit code 2)
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
		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateSpecsDir validates all specs in a directory.
// This is a helper function for external callers.
//
// Loading is fail-fast: the first load error is returned as the error.
// Otherwise the row, reference and cycle checks run and their findings are
// returned, empty when the specs are valid. Nothing is printed.
func ValidateSpecsDir(ctx context.Context, specsDir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := compiler.LoadSpecs(specsDir, compiler.LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text"}
	return validateRows(ctx, loadResult, nil, silent).Errors, nil
}
