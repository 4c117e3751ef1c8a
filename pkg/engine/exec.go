package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Evaluator is the expression-language collaborator the executor delegates
// all evaluation to. Implementations define their own truthiness and
// unpacking policy; the executor only consumes the results.
type Evaluator interface {
	// EvalExpr evaluates a single expression against env and returns its
	// value plus any text produced through the evaluator's write side
	// channel during evaluation.
	EvalExpr(expr string, env Environment) (Value, string, error)
	// ExecBlock executes a multi-line statement block against env and
	// returns the text it produced through the write side channel.
	ExecBlock(code string, env Environment) (string, error)
	// Sequence evaluates a generator expression into a lazy, pull-based
	// sequence of values for loop iteration.
	Sequence(expr string, env Environment) (Sequence, error)
}

// Sequence is a pull-based source of values consumed by a for loop.
type Sequence interface {
	// Next returns the next value, or false when the sequence is exhausted.
	Next() (Value, bool)
	// Done releases any resources held by the sequence.
	Done()
}

// DefaultLoopTimeout is the wall-clock budget of a while loop that is not
// marked slow.
const DefaultLoopTimeout = 2 * time.Second

// Executor walks a parsed tree and produces the output document. The walk
// is single-threaded and depth-first; the environment is mutated in place
// with strict stack discipline around loops, captures, and def calls.
type Executor struct {
	Eval        Evaluator
	LoopTimeout time.Duration
	Logger      *slog.Logger
}

func NewExecutor(ev Evaluator) *Executor {
	return &Executor{
		Eval:        ev,
		LoopTimeout: DefaultLoopTimeout,
		Logger:      slog.Default(),
	}
}

// Execute renders the tree against a seed environment. On error, no output
// is returned: execution is all-or-nothing apart from the while-loop time
// budget, which truncates only the loop it fires in.
func (x *Executor) Execute(doc *Document, env Environment) (string, error) {
	if env == nil {
		env = Environment{}
	}
	var buf bytes.Buffer
	if err := x.execNodes(&buf, doc.Children, env); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (x *Executor) execNodes(buf *bytes.Buffer, nodes []Node, env Environment) error {
	for _, n := range nodes {
		switch t := n.(type) {
		case *TextNode:
			buf.WriteString(t.Text)
		case *ExprNode:
			out, err := x.runCode(t, env)
			if err != nil {
				return err
			}
			buf.WriteString(out)
		case *CommentNode:
			// no output
		case *BlockNode:
			if err := x.execBlock(buf, t, env); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unhandled node type: %T", n)
		}
	}
	return nil
}

// runCode renders an expression tag. A single-line body is evaluated as an
// expression; text produced through the write channel wins over the
// stringified result. A multi-line body is executed as a statement block
// after its shared indentation is validated and stripped; the indentation
// is re-applied to each non-blank output line.
func (x *Executor) runCode(t *ExprNode, env Environment) (string, error) {
	lines := strings.Split(t.Code, "\n")
	if len(lines) == 1 {
		val, written, err := x.Eval.EvalExpr(t.Code, env)
		if err != nil {
			return "", &ExecError{Loc: t.Loc, What: "evaluating expression", Err: err}
		}
		if written != "" {
			return written, nil
		}
		return val.String(), nil
	}

	indent := leadingWhitespace(lines[1])
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			if len(lines[i]) < len(indent) {
				lines[i] = ""
			} else {
				lines[i] = lines[i][len(indent):]
			}
			continue
		}
		if !strings.HasPrefix(lines[i], indent) {
			return "", errMismatchingIndentation(t.Loc.Line+i, lines[i], t.Loc.Line+1, indent)
		}
		lines[i] = lines[i][len(indent):]
	}

	out, err := x.Eval.ExecBlock(strings.Join(lines, "\n"), env)
	if err != nil {
		return "", &ExecError{Loc: t.Loc, What: "executing code block", Err: err}
	}

	outLines := strings.Split(out, "\n")
	for i, line := range outLines {
		if strings.TrimSpace(line) != "" {
			outLines[i] = indent + line
		}
	}
	return strings.Join(outLines, "\n"), nil
}

func (x *Executor) execBlock(buf *bytes.Buffer, b *BlockNode, env Environment) error {
	switch k := b.Kind.(type) {
	case *IfKind:
		return x.execIfChain(buf, b, env)
	case *ForKind:
		return x.execFor(buf, b, k, env)
	case *WhileKind:
		return x.execWhile(buf, b, k, env)
	case *CaptureKind:
		var sub bytes.Buffer
		if err := x.execNodes(&sub, b.Children, env); err != nil {
			return err
		}
		env[k.Var] = StringValue(sub.String())
		return nil
	case *DefKind:
		env[k.Name] = x.makeFunc(b, k, env)
		return nil
	case *CommentKind:
		return nil
	case *EndKind:
		// never appears inside a built tree
		return nil
	}
	return fmt.Errorf("unhandled block kind: %T", b.Kind)
}

// execIfChain evaluates conditions down an if/elif/else chain and renders
// the children of the first truthy segment.
func (x *Executor) execIfChain(buf *bytes.Buffer, b *BlockNode, env Environment) error {
	for node := b; node != nil; {
		k := node.Kind.(*IfKind)
		val, _, err := x.Eval.EvalExpr(k.Expr, env)
		if err != nil {
			return &ExecError{Loc: node.Loc, What: "evaluating condition", Err: err}
		}
		if val.Truth() {
			return x.execNodes(buf, node.Children, env)
		}
		node = k.Continuation
	}
	return nil
}

// execFor backs up colliding bindings, pulls values from the lazy sequence
// and binds them to the loop targets, and restores the prior bindings once
// the sequence is exhausted. Loop targets do not leak past the loop.
func (x *Executor) execFor(buf *bytes.Buffer, b *BlockNode, k *ForKind, env Environment) error {
	backup := map[string]Value{}
	for _, name := range k.Targets {
		if v, ok := env[name]; ok {
			backup[name] = v
		}
	}

	seq, err := x.Eval.Sequence(k.GenExpr, env)
	if err != nil {
		return &ExecError{Loc: b.Loc, What: "evaluating loop source", Err: err}
	}
	defer seq.Done()

	for {
		val, ok := seq.Next()
		if !ok {
			break
		}
		if err := bindTargets(env, k.Targets, val); err != nil {
			return &ExecError{Loc: b.Loc, What: "binding loop targets", Err: err}
		}
		if err := x.execNodes(buf, b.Children, env); err != nil {
			return err
		}
	}

	for _, name := range k.Targets {
		delete(env, name)
	}
	for name, v := range backup {
		env[name] = v
	}
	return nil
}

func bindTargets(env Environment, targets []string, val Value) error {
	if len(targets) == 1 {
		env[targets[0]] = val
		return nil
	}
	ix, ok := val.(Indexable)
	if !ok {
		return fmt.Errorf("cannot unpack %s into %d targets", val.String(), len(targets))
	}
	if ix.Len() != len(targets) {
		return fmt.Errorf("cannot unpack %d values into %d targets", ix.Len(), len(targets))
	}
	for i, name := range targets {
		env[name] = ix.Index(i)
	}
	return nil
}

// execWhile re-evaluates the condition before each iteration and enforces
// a wall-clock budget, checked cooperatively once per iteration. Expiry
// terminates only this loop; output rendered so far is kept.
func (x *Executor) execWhile(buf *bytes.Buffer, b *BlockNode, k *WhileKind, env Environment) error {
	if k.DoFirst {
		if err := x.execNodes(buf, b.Children, env); err != nil {
			return err
		}
	}

	start := time.Now()
	for {
		val, _, err := x.Eval.EvalExpr(k.Expr, env)
		if err != nil {
			return &ExecError{Loc: b.Loc, What: "evaluating condition", Err: err}
		}
		if !val.Truth() {
			break
		}
		if err := x.execNodes(buf, b.Children, env); err != nil {
			return err
		}
		if !k.Slow && time.Since(start) > x.LoopTimeout {
			x.logger().Warn("while loop exceeded its time budget; terminating",
				"condition", k.Expr, "budget", x.LoopTimeout,
				"line", b.Loc.Line)
			break
		}
	}
	return nil
}

// makeFunc turns a def block into a callable. A call binds the arguments
// to the parameter names, renders the block's children into an isolated
// buffer, restores the prior bindings, and returns the rendered text.
func (x *Executor) makeFunc(b *BlockNode, k *DefKind, env Environment) FuncValue {
	return FuncValue{
		Name: k.Name,
		Fn: func(args []Value) (Value, error) {
			if len(args) != len(k.Params) {
				return nil, fmt.Errorf("%s takes %d arguments, got %d", k.Name, len(k.Params), len(args))
			}
			backup := map[string]Value{}
			bound := map[string]bool{}
			for i, name := range k.Params {
				if v, ok := env[name]; ok {
					backup[name] = v
				}
				env[name] = args[i]
				bound[name] = true
			}
			var sub bytes.Buffer
			err := x.execNodes(&sub, b.Children, env)
			for name := range bound {
				delete(env, name)
			}
			for name, v := range backup {
				env[name] = v
			}
			if err != nil {
				return nil, err
			}
			return StringValue(sub.String()), nil
		},
	}
}

func (x *Executor) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

func leadingWhitespace(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[:i]
		}
	}
	return s
}
