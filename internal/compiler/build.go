package compiler

import (
	"fmt"

	"github.com/roach88/bsync/internal/engine"
	"github.com/roach88/bsync/internal/ir"
)

// ProgramFile is a compiled program and where it came from.
type ProgramFile struct {
	Path string
	Spec *ir.ProgramSpec
}

// Build turns a validated spec into strands ready for Program.Add, in
// declaration order. Assert expressions are compiled here, once per idiom.
func Build(spec *ir.ProgramSpec) ([]engine.NamedStrand, error) {
	for _, e := range Validate(spec) {
		if !e.Warning {
			return nil, e
		}
	}

	strands := make([]engine.NamedStrand, 0, len(spec.Strands))
	for _, st := range spec.Strands {
		rules := make([]engine.RuleSet, 0, len(st.Rules))
		for i, r := range st.Rules {
			rs, err := buildRule(r)
			if err != nil {
				return nil, fmt.Errorf("strand %s rule %d: %w", st.Name, i, err)
			}
			rules = append(rules, rs)
		}

		s := engine.NewStrand(rules...)
		if st.Repeat {
			s = engine.Forever(s)
		}
		strands = append(strands, engine.Named(st.Name, s))
	}
	return strands, nil
}

func buildRule(r ir.RuleSpec) (engine.RuleSet, error) {
	var rs engine.RuleSet
	var err error

	if rs.WaitFor, err = buildIdioms(r.WaitFor); err != nil {
		return rs, err
	}
	if rs.Block, err = buildIdioms(r.Block); err != nil {
		return rs, err
	}
	if rs.Interrupt, err = buildIdioms(r.Interrupt); err != nil {
		return rs, err
	}
	for _, req := range r.Request {
		var data any
		if req.Data != nil {
			data = ir.ToGo(req.Data)
		}
		rs.Request = append(rs.Request, engine.Emit(engine.EventType(req.Type), data))
	}
	return rs, nil
}

func buildIdioms(specs []ir.IdiomSpec) ([]engine.Idiom, error) {
	var out []engine.Idiom
	for _, s := range specs {
		idiom := engine.Idiom{Type: engine.EventType(s.Type)}
		if s.Assert != "" {
			a, err := CompileAssert(s.Assert)
			if err != nil {
				return nil, err
			}
			idiom.Assert = a.Eval
		}
		out = append(out, idiom)
	}
	return out, nil
}

// Instantiate creates a Program for spec with its strands added.
// strategy overrides the program's own strategy when non-empty; seed feeds
// the randomized strategies. opts are applied after the strategy option, so
// a WithStrategy in opts wins.
func Instantiate(spec *ir.ProgramSpec, strategy string, seed int64, opts ...engine.ProgramOption) (*engine.Program, error) {
	name := strategy
	if name == "" {
		name = spec.Strategy
	}
	strat, err := engine.ParseStrategy(name, seed)
	if err != nil {
		return nil, err
	}

	strands, err := Build(spec)
	if err != nil {
		return nil, err
	}

	p := engine.New(append([]engine.ProgramOption{engine.WithStrategy(strat)}, opts...)...)
	if err := p.Add(strands...); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Trigger returns the trigger external callers should use: a public trigger
// when the program lists public event types, otherwise the program's own.
func Trigger(p *engine.Program, spec *ir.ProgramSpec) engine.TriggerFunc {
	if len(spec.Public) == 0 {
		return p.Trigger
	}
	public := make([]engine.EventType, len(spec.Public))
	for i, t := range spec.Public {
		public[i] = engine.EventType(t)
	}
	return p.PublicTrigger(public...)
}
