package starlark

import (
	"fmt"
	"html"
	"strings"

	"go.starlark.net/starlark"
)

// writeBuiltin collects text into the evaluator's output side channel:
// write(*args, sep=' ', end='\n', escape=False). Each argument is
// stringified, HTML-escaped when escape is true, joined with sep, and
// followed by end.
func (e *Evaluator) writeBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("write", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		sep, end := " ", "\n"
		esc := false
		for _, kv := range kwargs {
			name, _ := starlark.AsString(kv[0])
			switch name {
			case "sep":
				s, ok := starlark.AsString(kv[1])
				if !ok {
					return nil, fmt.Errorf("write: sep must be a string, got %s", kv[1].Type())
				}
				sep = s
			case "end":
				s, ok := starlark.AsString(kv[1])
				if !ok {
					return nil, fmt.Errorf("write: end must be a string, got %s", kv[1].Type())
				}
				end = s
			case "escape":
				esc = bool(kv[1].Truth())
			default:
				return nil, fmt.Errorf("write: unexpected keyword argument %q", name)
			}
		}

		parts := make([]string, len(args))
		for i, a := range args {
			s := displayString(a)
			if esc {
				s = html.EscapeString(s)
			}
			parts[i] = s
		}
		e.out.WriteString(strings.Join(parts, sep))
		e.out.WriteString(end)
		return starlark.None, nil
	})
}

// escapeBuiltin HTML-escapes its string argument: escape(s).
func escapeBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("escape", func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var s string
		if err := starlark.UnpackPositionalArgs("escape", args, kwargs, 1, &s); err != nil {
			return nil, err
		}
		return starlark.String(html.EscapeString(s)), nil
	})
}

// displayString renders a value the way print would: strings unquoted,
// everything else in its literal form.
func displayString(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}
