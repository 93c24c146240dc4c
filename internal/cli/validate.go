package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/bsync/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Program  string                     `json:"program,omitempty"`
	Strands  int                        `json:"strands"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Validate a program without running it",
		Long: `Compile a CUE program file (or a directory holding one CUE instance)
and check it: strands have rules, requests name an event type, assert
expressions compile, the strategy is known.

Warnings are printed but do not fail validation.

Exit codes:
  0 - Program is valid
  1 - Validation errors
  2 - Program could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	pf, err := LoadProgram(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, posDetails(loadErr))
		}
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	formatter.VerboseLog("Loaded program %q with %d strand(s) from %s", pf.Spec.Name, len(pf.Spec.Strands), path)

	result := ValidationResult{Program: pf.Spec.Name, Strands: len(pf.Spec.Strands)}
	for _, v := range compiler.Validate(pf.Spec) {
		if v.Warning {
			result.Warnings = append(result.Warnings, v)
		} else {
			result.Errors = append(result.Errors, v)
		}
	}
	result.Valid = len(result.Errors) == 0

	if err := outputValidation(formatter, result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
		}
		return formatter.Encode(resp)
	}

	w := formatter.Writer
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning %s: %s: %s\n", warn.Code, warn.Field, warn.Message)
	}
	if result.Valid {
		fmt.Fprintf(w, "✓ Program %s valid (%d strands)\n", result.Program, result.Strands)
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}
	return nil
}

// posDetails returns a load error's source position for the error details.
func posDetails(e *LoadError) any {
	if !e.Pos.IsValid() {
		return nil
	}
	return map[string]any{
		"file":   e.Pos.Filename(),
		"line":   e.Pos.Line(),
		"column": e.Pos.Column(),
	}
}
