package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNoStrands       = "E201" // program declares no strands
	ErrStrandNoRules   = "E202" // strand has an empty rules list
	ErrEmptyIdiom      = "E203" // idiom with neither type nor assert; matches nothing
	ErrRequestNoType   = "E204" // request without an event type
	ErrInvalidStrategy = "E205" // unknown strategy name
	ErrInvalidAssert   = "E206" // assert expression does not compile
	ErrDuplicateStrand = "E207" // two strands share a name
	ErrReservedName    = "E208" // strand name starts with the trigger prefix
)

// ValidationError represents a schema validation error.
// Warnings are reported but do not stop a program from being built.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Warning {
		return fmt.Sprintf("[%s] warning: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled program.
// Returns all errors found (does not fail-fast).
func Validate(spec *ir.ProgramSpec) []ValidationError {
	var errs []ValidationError

	if spec.Strategy != "" {
		if _, err := engine.ParseStrategy(spec.Strategy, 0); err != nil {
			errs = append(errs, ValidationError{
				Field:   "strategy",
				Message: err.Error(),
				Code:    ErrInvalidStrategy,
			})
		}
	}

	// E201
	if len(spec.Strands) == 0 {
		errs = append(errs, ValidationError{
			Field:   "strand",
			Message: "at least one strand is required",
			Code:    ErrNoStrands,
		})
	}

	seen := make(map[string]bool)
	for _, st := range spec.Strands {
		base := "strand." + st.Name

		if seen[st.Name] {
			errs = append(errs, ValidationError{
				Field:   base,
				Message: fmt.Sprintf("duplicate strand name: %q", st.Name),
				Code:    ErrDuplicateStrand,
			})
		}
		seen[st.Name] = true

		if strings.HasPrefix(st.Name, engine.TriggerStrandPrefix) {
			errs = append(errs, ValidationError{
				Field:   base,
				Message: fmt.Sprintf("strand name %q: prefix %q is reserved for triggers", st.Name, engine.TriggerStrandPrefix),
				Code:    ErrReservedName,
			})
		}

		// E202
		if len(st.Rules) == 0 {
			errs = append(errs, ValidationError{
				Field:   base + ".rules",
				Message: fmt.Sprintf("strand %q must have at least one rule", st.Name),
				Code:    ErrStrandNoRules,
			})
		}

		for i, rule := range st.Rules {
			field := fmt.Sprintf("%s.rules[%d]", base, i)
			errs = append(errs, validateIdioms(rule.WaitFor, field+".waitFor")...)
			errs = append(errs, validateIdioms(rule.Block, field+".block")...)
			errs = append(errs, validateIdioms(rule.Interrupt, field+".interrupt")...)

			for j, req := range rule.Request {
				// E204
				if strings.TrimSpace(req.Type) == "" {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s.request[%d].type", field, j),
						Message: "request type is required",
						Code:    ErrRequestNoType,
					})
				}
			}
		}
	}

	return errs
}

func validateIdioms(idioms []ir.IdiomSpec, field string) []ValidationError {
	var errs []ValidationError
	for i, idiom := range idioms {
		f := fmt.Sprintf("%s[%d]", field, i)
		if idiom.IsEmpty() {
			errs = append(errs, ValidationError{
				Field:   f,
				Message: "idiom has neither type nor assert and matches nothing",
				Code:    ErrEmptyIdiom,
				Warning: true,
			})
			continue
		}
		if idiom.Assert != "" {
			if _, err := CompileAssert(idiom.Assert); err != nil {
				errs = append(errs, ValidationError{
					Field:   f + ".assert",
					Message: err.Error(),
					Code:    ErrInvalidAssert,
				})
			}
		}
	}
	return errs
}

// HasErrors reports whether errs contains anything other than warnings.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}
