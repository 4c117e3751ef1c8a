package engine

// Parse lexes the source, normalizes whitespace around lonely tags, and
// nests block tags into a tree rooted at a Document.
func Parse(src string) (*Document, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	tokens = pruneTokens(tokens)

	doc := &Document{}
	c := &cursor{tokens: tokens}
	if err := c.build(nil, &doc.Children); err != nil {
		return nil, err
	}
	return doc, nil
}

type cursor struct {
	tokens []Node
	pos    int
}

func (c *cursor) next() (Node, bool) {
	if c.pos >= len(c.tokens) {
		return nil, false
	}
	tok := c.tokens[c.pos]
	c.pos++
	return tok, true
}

// build collects children for parent until its matching end tag. A nil
// parent is the document root, which is closed by the end of the token
// stream. A conditional continuation (elif/else) attaches to the parent
// and closes the parent's scope once the continuation itself is closed:
// a single end tag finishes an entire if/elif/else chain.
func (c *cursor) build(parent *BlockNode, children *[]Node) error {
	for {
		tok, ok := c.next()
		if !ok {
			if parent != nil {
				return errUnclosedTag(parent)
			}
			return nil
		}

		b, isBlock := tok.(*BlockNode)
		if isBlock {
			switch k := b.Kind.(type) {
			case *IfKind:
				if k.Tag == "elif" || k.Tag == "else" {
					pk, ok := condKind(parent)
					if !ok || (pk.Tag != "if" && pk.Tag != "elif") {
						return errElifOrElseWithoutIf(b)
					}
					pk.Continuation = b
					return c.build(b, &b.Children)
				}
			case *EndKind:
				if parent == nil {
					return errUnboundEnd(b)
				}
				if k.Target != "" && k.Target != parent.Kind.keyword() {
					return errMismatchingEnd(b, parent)
				}
				return nil
			}
		}

		*children = append(*children, tok)

		if isBlock {
			if err := c.build(b, &b.Children); err != nil {
				return err
			}
		}
	}
}

func condKind(b *BlockNode) (*IfKind, bool) {
	if b == nil {
		return nil, false
	}
	k, ok := b.Kind.(*IfKind)
	return k, ok
}
