package engine

import (
	"bytes"
	"fmt"
)

type Visitor interface {
	Visit(n Node) error
}

// Walk applies v to n and every node beneath it, including conditional
// continuations, in source order.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	switch t := n.(type) {
	case *Document:
		for _, c := range t.Children {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	case *BlockNode:
		for _, c := range t.Children {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
		if k, ok := t.Kind.(*IfKind); ok && k.Continuation != nil {
			if err := Walk(v, k.Continuation); err != nil {
				return err
			}
		}
	}
	return nil
}

// Pretty returns a line-oriented string representation of the tree.
func Pretty(doc *Document) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, doc)
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() {
		for i := 0; i < indent; i++ {
			buf.WriteByte(' ')
		}
	}
	switch t := n.(type) {
	case *Document:
		ind()
		buf.WriteString("Document\n")
		for _, c := range t.Children {
			ppNode(buf, indent+2, c)
		}
	case *TextNode:
		ind()
		fmt.Fprintf(buf, "Text(%q)\n", t.Text)
	case *ExprNode:
		ind()
		fmt.Fprintf(buf, "Expr(%q)\n", t.Code)
	case *CommentNode:
		ind()
		fmt.Fprintf(buf, "Comment(%q)\n", t.Body)
	case *BlockNode:
		ind()
		fmt.Fprintf(buf, "%s\n", describeKind(t))
		for _, c := range t.Children {
			ppNode(buf, indent+2, c)
		}
		if k, ok := t.Kind.(*IfKind); ok && k.Continuation != nil {
			ppNode(buf, indent, k.Continuation)
		}
	}
}

func describeKind(b *BlockNode) string {
	switch k := b.Kind.(type) {
	case *IfKind:
		return fmt.Sprintf("%s(%q)", titleTag(k.Tag), k.Expr)
	case *ForKind:
		return fmt.Sprintf("For(%v in %q)", k.Targets, k.GenExpr)
	case *WhileKind:
		return fmt.Sprintf("While(%q dofirst=%v slow=%v)", k.Expr, k.DoFirst, k.Slow)
	case *CaptureKind:
		return fmt.Sprintf("Capture(%s)", k.Var)
	case *DefKind:
		return fmt.Sprintf("Def(%s %v)", k.Name, k.Params)
	case *CommentKind:
		return "CommentBlock"
	case *EndKind:
		return fmt.Sprintf("End(%q)", k.Target)
	}
	return fmt.Sprintf("Block(%q)", b.Body)
}

func titleTag(tag string) string {
	switch tag {
	case "if":
		return "If"
	case "elif":
		return "Elif"
	default:
		return "Else"
	}
}
