package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bsync/internal/ir"
)

// CompileProgram parses a CUE value into a ProgramSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the program file's root struct:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`name: "hot-cold", strand: { ... }`)
//	spec, err := CompileProgram(v)
//
// Strands are returned in declaration order, which is the order they are
// registered in and therefore their default priority.
func CompileProgram(v cue.Value) (*ir.ProgramSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ProgramSpec{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Name = name

	if sv := v.LookupPath(cue.ParsePath("strategy")); sv.Exists() {
		s, err := sv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Strategy = s
	}

	if pv := v.LookupPath(cue.ParsePath("public")); pv.Exists() {
		spec.Public, err = parseStringList(pv)
		if err != nil {
			return nil, err
		}
	}

	spec.Strands, err = parseStrands(v)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// parseStrands extracts strand declarations in field order.
func parseStrands(v cue.Value) ([]ir.StrandSpec, error) {
	strandVal := v.LookupPath(cue.ParsePath("strand"))
	if !strandVal.Exists() {
		return nil, nil
	}

	iter, err := strandVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var strands []ir.StrandSpec
	for iter.Next() {
		name := iter.Label()
		sv := iter.Value()

		strand := ir.StrandSpec{Name: name}

		if rv := sv.LookupPath(cue.ParsePath("repeat")); rv.Exists() {
			repeat, err := rv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			strand.Repeat = repeat
		}

		rulesVal := sv.LookupPath(cue.ParsePath("rules"))
		if !rulesVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("strand.%s.rules", name),
				Message: "rules are required",
				Pos:     sv.Pos(),
			}
		}

		rulesIter, err := rulesVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; rulesIter.Next(); i++ {
			rule, err := parseRule(rulesIter.Value(), fmt.Sprintf("strand.%s.rules[%d]", name, i))
			if err != nil {
				return nil, err
			}
			strand.Rules = append(strand.Rules, rule)
		}

		strands = append(strands, strand)
	}

	return strands, nil
}

// parseRule parses one synchronization point.
func parseRule(v cue.Value, field string) (ir.RuleSpec, error) {
	var rule ir.RuleSpec

	if v.IncompleteKind() != cue.StructKind {
		return rule, &CompileError{
			Field:   field,
			Message: "rule must be a struct with waitFor, request, block or interrupt",
			Pos:     v.Pos(),
		}
	}

	var err error
	if rule.WaitFor, err = parseIdioms(v, "waitFor", field); err != nil {
		return rule, err
	}
	if rule.Block, err = parseIdioms(v, "block", field); err != nil {
		return rule, err
	}
	if rule.Interrupt, err = parseIdioms(v, "interrupt", field); err != nil {
		return rule, err
	}

	reqVal := v.LookupPath(cue.ParsePath("request"))
	if reqVal.Exists() {
		iter, err := reqVal.List()
		if err != nil {
			return rule, formatCUEError(err)
		}
		for iter.Next() {
			req, err := parseRequest(iter.Value(), field+".request")
			if err != nil {
				return rule, err
			}
			rule.Request = append(rule.Request, req)
		}
	}

	return rule, nil
}

// parseIdioms reads an idiom list under key. Entries are either a bare event
// type string or a struct with type and/or assert.
func parseIdioms(v cue.Value, key, field string) ([]ir.IdiomSpec, error) {
	listVal := v.LookupPath(cue.ParsePath(key))
	if !listVal.Exists() {
		return nil, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var idioms []ir.IdiomSpec
	for iter.Next() {
		iv := iter.Value()

		if s, err := iv.String(); err == nil {
			idioms = append(idioms, ir.IdiomSpec{Type: s})
			continue
		}

		if iv.IncompleteKind() != cue.StructKind {
			return nil, &CompileError{
				Field:   field + "." + key,
				Message: "idiom must be a string or a struct with type and/or assert",
				Pos:     iv.Pos(),
			}
		}

		var idiom ir.IdiomSpec
		if tv := iv.LookupPath(cue.ParsePath("type")); tv.Exists() {
			if idiom.Type, err = tv.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if av := iv.LookupPath(cue.ParsePath("assert")); av.Exists() {
			if idiom.Assert, err = av.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		idioms = append(idioms, idiom)
	}

	return idioms, nil
}

// parseRequest reads {type, data?}. A bare string is shorthand for a request
// with no data.
func parseRequest(v cue.Value, field string) (ir.RequestSpec, error) {
	if s, err := v.String(); err == nil {
		return ir.RequestSpec{Type: s}, nil
	}

	var req ir.RequestSpec
	tv := v.LookupPath(cue.ParsePath("type"))
	if tv.Exists() {
		t, err := tv.String()
		if err != nil {
			return req, formatCUEError(err)
		}
		req.Type = t
	}

	dv := v.LookupPath(cue.ParsePath("data"))
	if dv.Exists() {
		data, err := parseData(dv, field)
		if err != nil {
			return req, err
		}
		req.Data = data
	}

	return req, nil
}

// parseData converts a concrete CUE value into an IRValue via JSON.
// Floats are rejected the same way IR parsing rejects them.
func parseData(v cue.Value, field string) (ir.IRValue, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	data, err := ir.ParseJSON(raw)
	if err != nil {
		return nil, &CompileError{
			Field:   field + ".data",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return data, nil
}

func parseStringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
