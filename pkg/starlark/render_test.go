package starlark

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pageforge/pageforge/pkg/engine"
)

func render(t *testing.T, src string, data map[string]any) string {
	t.Helper()
	out, err := tryRender(src, data)
	if err != nil {
		t.Fatalf("render %q: %v", src, err)
	}
	return out
}

func tryRender(src string, data map[string]any) (string, error) {
	doc, err := engine.Parse(src)
	if err != nil {
		return "", err
	}
	ex := engine.NewExecutor(NewEvaluator())
	return ex.Execute(doc, engine.NewEnvironmentFromAny(data))
}

func TestRenderPlainText(t *testing.T) {
	for _, src := range []string{"", "hello", "line one\nline two\n", "tab\tand spaces"} {
		if got := render(t, src, nil); got != src {
			t.Fatalf("plain text altered: got %q, want %q", got, src)
		}
	}
}

func TestRenderExpr(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{"string var", "Hello {{ name }}!", map[string]any{"name": "Ada"}, "Hello Ada!"},
		{"arithmetic", "{{ 2 + 3 }}", nil, "5"},
		{"zero stringifies", "{{ 0 }}", nil, "0"},
		{"empty string", "a{{ '' }}b", nil, "ab"},
		{"bool", "{{ 1 == 1 }}", nil, "True"},
		{"none is empty", "a{{ None }}b", nil, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src, tt.data); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderEscapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`\{\{ x \}\}`, "{{ x }}"},
		{`\{% not a block %\}`, "{% not a block %}"},
		{`\{# not a comment #\}`, "{# not a comment #}"},
		{`\{ and \}`, "{ and }"},
	}
	for _, tt := range tests {
		if got := render(t, tt.src, nil); got != tt.want {
			t.Fatalf("render %q: got %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRenderComments(t *testing.T) {
	if got := render(t, "a{# hidden #}b", nil); got != "ab" {
		t.Fatalf("inline comment: got %q", got)
	}
	if got := render(t, "{# a {# nested #} c #}", nil); got != "" {
		t.Fatalf("nested comment: got %q", got)
	}
	// A comment block suppresses its children without evaluating them.
	if got := render(t, "a{% comment %}{{ boom }}{% endcomment %}b", nil); got != "ab" {
		t.Fatalf("comment block: got %q", got)
	}
}

func TestRenderConditionals(t *testing.T) {
	const src = "{% if x == 1 %}A{% elif x == 2 %}B{% else %}C{% endif %}"
	tests := []struct {
		x    int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{3, "C"},
	}
	for _, tt := range tests {
		if got := render(t, src, map[string]any{"x": tt.x}); got != tt.want {
			t.Fatalf("x=%d: got %q, want %q", tt.x, got, tt.want)
		}
	}
}

func TestRenderConditionalTruthiness(t *testing.T) {
	const src = "{% if xs %}y{% endif %}"
	if got := render(t, src, map[string]any{"xs": []any{}}); got != "" {
		t.Fatalf("empty list should be falsy, got %q", got)
	}
	if got := render(t, src, map[string]any{"xs": []any{1}}); got != "y" {
		t.Fatalf("non-empty list should be truthy, got %q", got)
	}
}

func TestRenderForLoop(t *testing.T) {
	if got := render(t, "{% for i in range(3) %}{{ i }}{% endfor %}", nil); got != "012" {
		t.Fatalf("range loop: got %q, want %q", got, "012")
	}
	if got := render(t, "{% for w in words %}{{ w }},{% endfor %}", map[string]any{"words": []any{"a", "b"}}); got != "a,b," {
		t.Fatalf("list loop: got %q, want %q", got, "a,b,")
	}
}

func TestRenderForLoopScoping(t *testing.T) {
	got := render(t, "{% for i in [1] %}{{ i }}{% endfor %}{{ i }}",
		map[string]any{"i": "outer"})
	if got != "1outer" {
		t.Fatalf("got %q, want %q", got, "1outer")
	}
}

func TestRenderForLoopDestructuring(t *testing.T) {
	got := render(t, "{% for a, b in [(1, 2), (3, 4)] %}{{ a }}-{{ b }};{% endfor %}", nil)
	if got != "1-2;3-4;" {
		t.Fatalf("got %q, want %q", got, "1-2;3-4;")
	}
}

func TestRenderForLoopArityMismatch(t *testing.T) {
	if _, err := tryRender("{% for a, b in [(1, 2, 3)] %}x{% endfor %}", nil); err == nil {
		t.Fatal("expected an unpacking error")
	}
}

func TestRenderNestedForLoops(t *testing.T) {
	got := render(t, "{% for i in range(2) %}{% for j in range(2) %}{{ i }}{{ j }} {% endfor %}{% endfor %}", nil)
	if got != "00 01 10 11 " {
		t.Fatalf("got %q", got)
	}
}

func TestRenderWhileLoop(t *testing.T) {
	// The body flips a flag, so the loop runs exactly once.
	got := render(t, "{% while not done %}x{{\n  done = True\n}}{% endwhile %}",
		map[string]any{"done": false})
	if got != "x" {
		t.Fatalf("got %q, want %q", got, "x")
	}
}

func TestRenderWhileDoFirst(t *testing.T) {
	if got := render(t, "{% while dofirst False %}a{% endwhile %}", nil); got != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}
	if got := render(t, "{% while False %}a{% endwhile %}", nil); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestRenderWhileTimeBudget(t *testing.T) {
	doc, err := engine.Parse("{% while True %}x{% endwhile %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	ex := engine.NewExecutor(NewEvaluator())
	ex.LoopTimeout = 50 * time.Millisecond
	ex.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	start := time.Now()
	out, err := ex.Execute(doc, engine.Environment{})
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("loop was not terminated promptly")
	}
	if out == "" || strings.Trim(out, "x") != "" {
		t.Fatalf("unexpected loop output %q", out)
	}
}

func TestRenderCapture(t *testing.T) {
	got := render(t, "{% capture x %}1{% endcapture %}{{ x }}2", nil)
	if got != "12" {
		t.Fatalf("got %q, want %q", got, "12")
	}
}

func TestRenderCaptureIsolation(t *testing.T) {
	// The loop output accumulates in the capture's buffer, never in the
	// surrounding document, until the whole block is bound.
	got := render(t, "a{% capture x %}{% for i in range(3) %}{{ i }}{% endfor %}{% endcapture %}b{{ x }}", nil)
	if got != "ab012" {
		t.Fatalf("got %q, want %q", got, "ab012")
	}
}

func TestRenderDef(t *testing.T) {
	got := render(t, "{% def greet name %}Hello {{ name }}!{% enddef %}{{ greet(\"Bob\") }}", nil)
	if got != "Hello Bob!" {
		t.Fatalf("got %q, want %q", got, "Hello Bob!")
	}
}

func TestRenderDefCallInsideExpression(t *testing.T) {
	// The def body writes through the side channel while the outer
	// expression is mid-evaluation; the outer expression's own value must
	// still win once the call returns.
	got := render(t, `{% def f %}{{ write("hi", end="") }}{% enddef %}{{ f() + "!" }}`, nil)
	if got != "hi!" {
		t.Fatalf("got %q, want %q", got, "hi!")
	}
}

func TestRenderDefArgumentCount(t *testing.T) {
	if _, err := tryRender("{% def f a b %}x{% enddef %}{{ f(1) }}", nil); err == nil {
		t.Fatal("expected an argument-count error")
	}
}

func TestRenderWriteInline(t *testing.T) {
	// Text written through the side channel replaces the expression's value.
	if got := render(t, `x{{ write("y", end="") }}z`, nil); got != "xyz" {
		t.Fatalf("got %q, want %q", got, "xyz")
	}
}

func TestRenderMultiLineBlock(t *testing.T) {
	src := "{{\n    write('a')\n    write('b')\n}}"
	got := render(t, src, nil)
	if got != "    a\n    b\n" {
		t.Fatalf("got %q, want %q", got, "    a\n    b\n")
	}
}

func TestRenderMultiLineBlockBindsGlobals(t *testing.T) {
	got := render(t, "{{\n  n = 6 * 7\n}}{{ n }}", nil)
	if got != "42" {
		t.Fatalf("got %q, want %q", got, "42")
	}
}

func TestRenderMultiLineBlockBadIndentation(t *testing.T) {
	_, err := tryRender("{{\n    a = 1\n  b = 2\n}}", nil)
	var serr *engine.SyntaxError
	if !errors.As(err, &serr) || serr.Kind != engine.ErrMismatchingIndentation {
		t.Fatalf("want a mismatching-indentation error, got %v", err)
	}
}

func TestRenderLonelyTagWhitespace(t *testing.T) {
	got := render(t, "x\n{% if True %}\ny\n{% endif %}\nz", nil)
	if got != "x\ny\nz" {
		t.Fatalf("got %q, want %q", got, "x\ny\nz")
	}
}

func TestRenderErrorProducesNoOutput(t *testing.T) {
	out, err := tryRender("ok{{ undefined_name }}", nil)
	if err == nil {
		t.Fatal("expected an evaluation error")
	}
	if out != "" {
		t.Fatalf("partial output leaked: %q", out)
	}
	var xerr *engine.ExecError
	if !errors.As(err, &xerr) {
		t.Fatalf("want an ExecError, got %T", err)
	}
}

func TestTemplateString(t *testing.T) {
	tpl := engine.TemplateString("Hello {{ name }}!")
	if err := tpl.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	out, err := tpl.Render(NewEvaluator(), engine.Environment{"name": engine.StringValue("Eve")})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello Eve!" {
		t.Fatalf("got %q", out)
	}

	if err := engine.TemplateString("{% if x %}").Validate(); err == nil {
		t.Fatal("expected a validation error for an unclosed block")
	}
}
