package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool       `json:"valid"`
	Repositories int        `json:"repositories"`
	Methods      int        `json:"methods"`
	Errors       []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate repository declarations without output",
		Long: `Validate CUE entity and repository declarations.

Compiles every method and reports each error with its code and
position. Nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)
	if loadResult == nil {
		code, message, _ := errorParts(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(loadResult.Files), specsDir)

	result := ValidationResult{Valid: len(loadErrors) == 0, Repositories: len(loadResult.Repositories)}
	for _, r := range loadResult.Repositories {
		formatter.VerboseLog("Validated repository: %s (%d method(s))", r.Name, len(r.Methods))
		result.Methods += len(r.Methods)
	}

	if len(loadErrors) > 0 {
		return outputValidationErrors(formatter, result, loadErrors)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.json() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d repository(s), %d method(s))\n", result.Repositories, result.Methods)
	return nil
}

// outputValidationErrors outputs every validation error. Invalid specs
// are a validation failure (exit code 1), not a command error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult, errs []error) error {
	if formatter.json() {
		result.Errors = toCLIErrors(errs)
		if err := formatter.writeJSON(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &result.Errors[0],
		}); err != nil {
			return err
		}
	} else {
		formatter.writeErrorList("✗ Validation failed", errs)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
