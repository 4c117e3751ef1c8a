package engine

import "fmt"

// ErrorKind discriminates the parse-time failure modes.
type ErrorKind int

const (
	ErrIncompleteTag ErrorKind = iota
	ErrMultiLineBlockTag
	ErrUnknownTag
	ErrUnboundEndBlockTag
	ErrMismatchingEndBlockTag
	ErrMismatchingIndentation
	ErrUnclosedTag
	ErrExpressionMissing
	ErrExpressionProhibited
	ErrElifOrElseWithoutIf
	ErrIncorrectForTag
	ErrInvalidCaptureVar
	ErrInvalidDefName
)

// SyntaxError is any error detected while lexing or parsing a template.
// Line and Column locate the offending construct's opening delimiter.
type SyntaxError struct {
	Kind   ErrorKind
	Line   int
	Column int
	Desc   string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Desc
}

func syntaxErrf(kind ErrorKind, loc Loc, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Kind:   kind,
		Line:   loc.Line,
		Column: loc.Column,
		Desc:   fmt.Sprintf(format, args...),
	}
}

func errIncompleteTag(open, close string, loc Loc) *SyntaxError {
	return syntaxErrf(ErrIncompleteTag, loc,
		"missing closing '%s' for opening '%s' at line %d, column %d", close, open, loc.Line, loc.Column)
}

func errMultiLineBlockTag(loc Loc) *SyntaxError {
	return syntaxErrf(ErrMultiLineBlockTag, loc,
		"the tag starting at line %d, column %d spans multiple lines; block tags ('{%% ... %%}') must be on one line", loc.Line, loc.Column)
}

func errUnknownTag(body string, loc Loc) *SyntaxError {
	return syntaxErrf(ErrUnknownTag, loc,
		"unknown tag '{%% %s %%}' at line %d, column %d", body, loc.Line, loc.Column)
}

func errUnboundEnd(b *BlockNode) *SyntaxError {
	return syntaxErrf(ErrUnboundEndBlockTag, b.Loc,
		"unbound closing tag '{%% %s %%}' at line %d, column %d", b.Body, b.Loc.Line, b.Loc.Column)
}

func errMismatchingEnd(end, opener *BlockNode) *SyntaxError {
	return syntaxErrf(ErrMismatchingEndBlockTag, end.Loc,
		"the end tag '{%% %s %%}' at line %d, column %d should be '{%% end%s %%}', as it corresponds to the block tag '{%% %s %%}' at line %d, column %d",
		end.Body, end.Loc.Line, end.Loc.Column,
		opener.Kind.keyword(), opener.Body, opener.Loc.Line, opener.Loc.Column)
}

func errMismatchingIndentation(lineNum int, line string, secondLine int, indent string) *SyntaxError {
	return syntaxErrf(ErrMismatchingIndentation, Loc{Line: lineNum},
		"mismatching indentation in line %d: %q; indentation must match the second line of code in the tag (line %d), whose indentation is %q (%d characters)",
		lineNum, line, secondLine, indent, len(indent))
}

func errUnclosedTag(b *BlockNode) *SyntaxError {
	return syntaxErrf(ErrUnclosedTag, b.Loc,
		"missing closing '{%% %%}' tag for opening '{%% %s %%}' at line %d, column %d", b.Body, b.Loc.Line, b.Loc.Column)
}

func errExpressionMissing(tag string, loc Loc) *SyntaxError {
	return syntaxErrf(ErrExpressionMissing, loc,
		"expression missing in '%s' tag at line %d, column %d", tag, loc.Line, loc.Column)
}

func errExpressionProhibited(tag string, loc Loc) *SyntaxError {
	return syntaxErrf(ErrExpressionProhibited, loc,
		"the '%s' tag at line %d, column %d must appear by itself, without any text next to it", tag, loc.Line, loc.Column)
}

func errElifOrElseWithoutIf(b *BlockNode) *SyntaxError {
	return syntaxErrf(ErrElifOrElseWithoutIf, b.Loc,
		"missing initial 'if' tag for conditional '%s' tag at line %d, column %d", b.Body, b.Loc.Line, b.Loc.Column)
}

func errIncorrectForTag(body string, loc Loc) *SyntaxError {
	return syntaxErrf(ErrIncorrectForTag, loc, "incorrect 'for' tag syntax: %q", body)
}

func errInvalidCaptureVar(name string, loc Loc) *SyntaxError {
	return syntaxErrf(ErrInvalidCaptureVar, loc,
		"incorrect capture block: %q is not a valid variable name", name)
}

func errInvalidDefName(name string, loc Loc) *SyntaxError {
	return syntaxErrf(ErrInvalidDefName, loc,
		"incorrect def block: %q is not a valid function or argument name", name)
}

// ExecError is a runtime failure reported while executing the tree, usually
// wrapping an error from the expression evaluator.
type ExecError struct {
	Loc  Loc
	What string
	Err  error
}

func (e *ExecError) Error() string {
	if e.Loc.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s: %v", e.Loc.Line, e.Loc.Column, e.What, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.What, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
