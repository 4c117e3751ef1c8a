package starlark

import (
	"fmt"
	"strings"

	"github.com/pageforge/pageforge/pkg/engine"
	"go.starlark.net/starlark"
)

// Evaluator implements engine.Evaluator on top of a Starlark interpreter.
// Expressions and statement blocks see the template environment as
// predeclared names, alongside the write and escape builtins. Starlark's
// truthiness rules apply: None, False, zero, and empty containers are
// falsy.
//
// An Evaluator is single-threaded, like the executor that drives it.
type Evaluator struct {
	thread *starlark.Thread
	out    strings.Builder
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		thread: &starlark.Thread{Name: "pageforge"},
	}
}

// swapOut gives one evaluation its own write channel and restores the
// caller's contents on return. Evaluations nest: a def-block call made
// from inside an expression re-enters the evaluator, and its writes must
// not surface in the outer expression's channel.
func (e *Evaluator) swapOut() func() {
	saved := e.out.String()
	e.out.Reset()
	return func() {
		e.out.Reset()
		e.out.WriteString(saved)
	}
}

// EvalExpr evaluates a single expression. The returned string is whatever
// the expression wrote through the write builtin during evaluation.
func (e *Evaluator) EvalExpr(expr string, env engine.Environment) (engine.Value, string, error) {
	defer e.swapOut()()
	val, err := starlark.Eval(e.thread, "<expr>", strings.TrimSpace(expr), e.predeclared(env))
	if err != nil {
		return nil, "", fmt.Errorf("starlark evaluation error: %w", err)
	}
	return ConvertFromStarlark(val), e.out.String(), nil
}

// ExecBlock executes a multi-line statement block. Top-level assignments
// are merged back into env so they persist for the rest of the walk;
// underscore-prefixed names stay private to the block.
func (e *Evaluator) ExecBlock(code string, env engine.Environment) (string, error) {
	defer e.swapOut()()
	globals, err := starlark.ExecFile(e.thread, "<block>", code, e.predeclared(env))
	if err != nil {
		return "", fmt.Errorf("starlark execution error: %w", err)
	}
	for name, val := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		env[name] = ConvertFromStarlark(val)
	}
	return e.out.String(), nil
}

// Sequence evaluates a generator expression of the form
// "((targets) for ... in ...)" into a pull-based sequence. Starlark has no
// generator expressions, so the form is rewritten into a list
// comprehension and the result iterated lazily.
func (e *Evaluator) Sequence(genexpr string, env engine.Environment) (engine.Sequence, error) {
	// Writes made while evaluating the loop source have nowhere to go.
	defer e.swapOut()()
	expr := genexpr
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		expr = "[" + expr[1:len(expr)-1] + "]"
	}
	val, err := starlark.Eval(e.thread, "<loop>", expr, e.predeclared(env))
	if err != nil {
		return nil, fmt.Errorf("starlark evaluation error: %w", err)
	}
	it := starlark.Iterate(val)
	if it == nil {
		return nil, fmt.Errorf("value of type %s is not iterable", val.Type())
	}
	return &sequence{it: it}, nil
}

type sequence struct {
	it starlark.Iterator
}

func (s *sequence) Next() (engine.Value, bool) {
	var v starlark.Value
	if !s.it.Next(&v) {
		return nil, false
	}
	return ConvertFromStarlark(v), true
}

func (s *sequence) Done() { s.it.Done() }

func (e *Evaluator) predeclared(env engine.Environment) starlark.StringDict {
	d := make(starlark.StringDict, len(env)+2)
	for name, val := range env {
		d[name] = ConvertToStarlark(val)
	}
	d["write"] = e.writeBuiltin()
	d["escape"] = escapeBuiltin()
	return d
}
