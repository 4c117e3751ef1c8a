package engine

import (
	"errors"
	"testing"
)

func TestLexPlainTextRoundTrips(t *testing.T) {
	src := "Hello, world.\nNo tags here at all.\n"
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("want 1 token, got %d", len(tokens))
	}
	tn, ok := tokens[0].(*TextNode)
	if !ok || tn.Text != src {
		t.Fatalf("want Text(%q), got %#v", src, tokens[0])
	}
}

func TestLexEscapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`\{x\}`, "{x}"},
		{`\{\{ not a tag \}\}`, "{{ not a tag }}"},
		{`a \{ b \} c`, "a { b } c"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, err := Lex(tt.src)
			if err != nil {
				t.Fatalf("lex error: %v", err)
			}
			if len(tokens) != 1 {
				t.Fatalf("want 1 token, got %d: %#v", len(tokens), tokens)
			}
			tn, ok := tokens[0].(*TextNode)
			if !ok || tn.Text != tt.want {
				t.Fatalf("want Text(%q), got %#v", tt.want, tokens[0])
			}
		})
	}
}

func TestLexExprTag(t *testing.T) {
	tokens, err := Lex("a{{ x }}b")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("want 3 tokens, got %d", len(tokens))
	}
	en, ok := tokens[1].(*ExprNode)
	if !ok || en.Code != " x " {
		t.Fatalf("want Expr(\" x \"), got %#v", tokens[1])
	}
	if en.Loc.Line != 1 || en.Loc.Column != 1 {
		t.Fatalf("unexpected location: %+v", en.Loc)
	}
}

func TestLexNestedComment(t *testing.T) {
	tokens, err := Lex("{# a {# b #} c #}")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("want 1 token, got %d: %#v", len(tokens), tokens)
	}
	cn, ok := tokens[0].(*CommentNode)
	if !ok {
		t.Fatalf("want CommentNode, got %#v", tokens[0])
	}
	if cn.Body != " a {# b #} c " {
		t.Fatalf("inner comment not kept verbatim: %q", cn.Body)
	}
}

func TestLexTracksLines(t *testing.T) {
	tokens, err := Lex("first\nsecond {{ x }}")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	en, ok := tokens[len(tokens)-1].(*ExprNode)
	if !ok {
		t.Fatalf("want ExprNode last, got %#v", tokens[len(tokens)-1])
	}
	if en.Loc.Line != 2 {
		t.Fatalf("want line 2, got %d", en.Loc.Line)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{"unterminated expr", "{{ x", ErrIncompleteTag},
		{"unterminated block", "{% if x", ErrIncompleteTag},
		{"unterminated comment", "{# x", ErrIncompleteTag},
		{"unterminated nested comment", "{# a {# b #}", ErrIncompleteTag},
		{"multi-line block tag", "{% if x\n%}", ErrMultiLineBlockTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.src)
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Fatalf("want SyntaxError, got %v", err)
			}
			if serr.Kind != tt.kind {
				t.Fatalf("want kind %d, got %d (%s)", tt.kind, serr.Kind, serr.Desc)
			}
		})
	}
}

func TestLexBlockBodyTrimmed(t *testing.T) {
	tokens, err := Lex("{%  if x  %}{% endif %}")
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	bn, ok := tokens[0].(*BlockNode)
	if !ok || bn.Body != "if x" {
		t.Fatalf("want Block(\"if x\"), got %#v", tokens[0])
	}
}
