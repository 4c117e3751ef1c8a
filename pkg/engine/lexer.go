package engine

import "strings"

// Delimiter pairs recognized by the lexer.
const (
	exprOpen     = "{{"
	exprClose    = "}}"
	blockOpen    = "{%"
	blockClose   = "%}"
	commentOpen  = "{#"
	commentClose = "#}"
)

type lexState int

const (
	lexOutside lexState = iota
	lexText
	lexExpr
	lexBlock
	lexComment
)

// Lex scans template source into a flat sequence of nodes: text runs,
// expression tags, comment tags, and classified block tags. The escape
// sequences \{ and \} produce literal braces and never participate in
// delimiter matching, except inside comments where content is kept
// verbatim. Comment tags nest: an inner {# must be balanced by an inner #}
// before the outer comment closes.
func Lex(src string) ([]Node, error) {
	var (
		tokens       []Node
		buf          strings.Builder
		state        = lexOutside
		start        Loc
		commentDepth int
	)

	line, nlPos := 1, 0
	n := len(src)
	i := 0
	for i < n {
		c := src[i]
		if c == '\n' {
			line++
			nlPos = i
		}
		var c2 string
		if i+1 < n {
			c2 = src[i : i+2]
		}
		loc := Loc{Line: line, Column: i - nlPos}

		switch state {
		case lexOutside, lexText:
			if next, ok := openDelimState(c2); ok {
				if state == lexText && buf.Len() > 0 {
					tokens = append(tokens, &TextNode{Text: buf.String()})
				}
				buf.Reset()
				state = next
				start = loc
				if state == lexComment {
					commentDepth = 1
				}
				i += 2
				continue
			}
			state = lexText
			if lit, ok := unescape(c2); ok {
				buf.WriteByte(lit)
				i += 2
				continue
			}
			buf.WriteByte(c)
			i++

		case lexExpr:
			if c2 == exprClose {
				tokens = append(tokens, &ExprNode{Code: buf.String(), Loc: start})
				buf.Reset()
				state = lexOutside
				i += 2
				continue
			}
			if lit, ok := unescape(c2); ok {
				buf.WriteByte(lit)
				i += 2
				continue
			}
			buf.WriteByte(c)
			i++

		case lexBlock:
			if c2 == blockClose {
				body := buf.String()
				if strings.Contains(body, "\n") {
					return nil, errMultiLineBlockTag(start)
				}
				kind, err := classifyBlock(body, start)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, &BlockNode{
					Loc:  start,
					Body: strings.TrimSpace(body),
					Kind: kind,
				})
				buf.Reset()
				state = lexOutside
				i += 2
				continue
			}
			if lit, ok := unescape(c2); ok {
				buf.WriteByte(lit)
				i += 2
				continue
			}
			buf.WriteByte(c)
			i++

		case lexComment:
			if c2 == commentOpen {
				commentDepth++
				buf.WriteString(c2)
				i += 2
				continue
			}
			if c2 == commentClose {
				commentDepth--
				if commentDepth == 0 {
					tokens = append(tokens, &CommentNode{Body: buf.String(), Loc: start})
					buf.Reset()
					state = lexOutside
					i += 2
					continue
				}
				buf.WriteString(c2)
				i += 2
				continue
			}
			buf.WriteByte(c)
			i++
		}
	}

	switch state {
	case lexText:
		if buf.Len() > 0 {
			tokens = append(tokens, &TextNode{Text: buf.String()})
		}
	case lexExpr:
		return nil, errIncompleteTag(exprOpen, exprClose, start)
	case lexBlock:
		return nil, errIncompleteTag(blockOpen, blockClose, start)
	case lexComment:
		return nil, errIncompleteTag(commentOpen, commentClose, start)
	}

	return tokens, nil
}

func openDelimState(c2 string) (lexState, bool) {
	switch c2 {
	case exprOpen:
		return lexExpr, true
	case blockOpen:
		return lexBlock, true
	case commentOpen:
		return lexComment, true
	}
	return 0, false
}

func unescape(c2 string) (byte, bool) {
	switch c2 {
	case `\{`:
		return '{', true
	case `\}`:
		return '}', true
	}
	return 0, false
}
