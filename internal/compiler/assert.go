package compiler

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/bsync/internal/engine"
)

// Assert is a compiled assert expression. The expression sees the event as
// two variables, eventType and data, and must evaluate to a bool. The name
// eventType avoids the expr builtin type().
type Assert struct {
	Source  string
	program *vm.Program
}

// assertEnv is the expression environment. Data is untyped so expressions
// may index into whatever payload the event carries.
type assertEnv struct {
	EventType string `expr:"eventType"`
	Data      any    `expr:"data"`
}

// CompileAssert compiles src once for repeated evaluation.
func CompileAssert(src string) (*Assert, error) {
	program, err := expr.Compile(src, expr.Env(assertEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile assert %q: %w", src, err)
	}
	return &Assert{Source: src, program: program}, nil
}

// Eval runs the expression against ev. A runtime failure, such as indexing
// into missing data, counts as no match.
func (a *Assert) Eval(ev engine.Event) bool {
	out, err := expr.Run(a.program, assertEnv{
		EventType: string(ev.Type),
		Data:      ev.Data,
	})
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
