package engine

import "strings"

// pruneTokens normalizes whitespace around lonely tags and drops text nodes
// that end up empty.
func pruneTokens(tokens []Node) []Node {
	stripLonelyTagWhitespace(tokens)

	kept := tokens[:0]
	for _, tok := range tokens {
		if t, ok := tok.(*TextNode); ok && t.Text == "" {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}

// stripLonelyTagWhitespace deletes the line-fragments of whitespace around
// a tag that sits alone on its own line, so block and comment tags do not
// leave stray blank lines in the output. Single-line expression tags are
// left alone: their value replaces the tag in place. When two stripped tags
// are separated only by a blank line, that line collapses entirely.
func stripLonelyTagWhitespace(tokens []Node) {
	strippedPrev := false
	for i, tok := range tokens {
		if _, ok := tok.(*TextNode); ok {
			continue
		}
		// A single-line expression tag is never stripped, and it also
		// breaks the run of stripped tags the collapse rule tracks.
		if !isStrippableTag(tok) {
			strippedPrev = false
			continue
		}

		var (
			prev, next        *TextNode
			leading, trailing string
			prevNl, nextNl    = -1, -1
		)
		if i > 0 {
			prev, _ = tokens[i-1].(*TextNode)
		}
		if i+1 < len(tokens) {
			next, _ = tokens[i+1].(*TextNode)
		}
		if prev != nil {
			prevNl = strings.LastIndexByte(prev.Text, '\n')
			if prevNl >= 0 {
				leading = prev.Text[prevNl+1:]
			} else {
				leading = prev.Text
			}
		}
		if next != nil {
			nextNl = strings.IndexByte(next.Text, '\n')
			if nextNl >= 0 {
				trailing = next.Text[:nextNl+1]
			} else {
				trailing = next.Text
			}
		}

		shouldStrip := strings.TrimSpace(leading) == "" && strings.TrimSpace(trailing) == ""
		if shouldStrip {
			if prev != nil && prevNl >= 0 {
				prev.Text = prev.Text[:prevNl+1]
			}
			if next != nil && nextNl >= 0 {
				next.Text = next.Text[nextNl+1:]
			}
			// A whitespace-only fragment left between two stripped tags
			// collapses to nothing.
			if strippedPrev && i >= 2 && prev != nil {
				if _, ok := tokens[i-2].(*TextNode); !ok {
					if !strings.Contains(prev.Text, "\n") && strings.TrimSpace(prev.Text) == "" {
						prev.Text = ""
					}
				}
			}
		}
		strippedPrev = shouldStrip
	}
}

// isStrippableTag reports whether the lonely-tag whitespace rule applies to
// this node: block tags, comment tags, and multi-line expression tags.
func isStrippableTag(n Node) bool {
	switch t := n.(type) {
	case *BlockNode, *CommentNode:
		return true
	case *ExprNode:
		return strings.Contains(t.Code, "\n")
	}
	return false
}
