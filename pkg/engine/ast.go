package engine

// Loc is the source position of a tag's opening delimiter.
type Loc struct {
	Line   int
	Column int
}

// Node is any node in a parsed template.
type Node interface {
	node()
}

// Document is the root node produced by Parse.
type Document struct {
	Children []Node
}

func (*Document) node() {}

// TextNode represents literal text between tags.
type TextNode struct {
	Text string
}

func (*TextNode) node() {}

// ExprNode represents an expression tag: {{ code }}. The code may span
// multiple lines, in which case it is executed as a statement block.
type ExprNode struct {
	Code string
	Loc  Loc
}

func (*ExprNode) node() {}

// CommentNode represents an inline comment: {# ... #}. Nested {# #} pairs
// are kept verbatim in Body.
type CommentNode struct {
	Body string
	Loc  Loc
}

func (*CommentNode) node() {}

// BlockNode represents a block tag: {% directive %} ... {% end %}.
// Body is the directive text with surrounding whitespace removed.
type BlockNode struct {
	Loc      Loc
	Body     string
	Kind     BlockKind
	Children []Node
}

func (*BlockNode) node() {}

// BlockKind identifies the concrete directive of a BlockNode.
type BlockKind interface {
	blockKind()
	// keyword is the directive word a named end tag must use to close
	// this block, e.g. "for" for {% endfor %}.
	keyword() string
}

// IfKind is a conditional directive: if, elif, or else. The elif/else
// segments of a chain hang off the initial if via Continuation; an else
// carries the constant expression "True".
type IfKind struct {
	Tag          string // "if", "elif", or "else"
	Expr         string
	Continuation *BlockNode
}

func (*IfKind) blockKind()      {}
func (*IfKind) keyword() string { return "if" }

// ForKind is a for loop. GenExpr is the synthetic generator expression
// handed to the evaluator; Targets are the sorted loop variable names the
// produced values are destructured into.
type ForKind struct {
	Targets []string
	GenExpr string
}

func (*ForKind) blockKind()      {}
func (*ForKind) keyword() string { return "for" }

// WhileKind is a while loop. DoFirst runs the body once before the first
// condition check; Slow disables the loop time budget.
type WhileKind struct {
	Expr    string
	DoFirst bool
	Slow    bool
}

func (*WhileKind) blockKind()      {}
func (*WhileKind) keyword() string { return "while" }

// CaptureKind binds the rendered body to a variable instead of emitting it.
type CaptureKind struct {
	Var string
}

func (*CaptureKind) blockKind()      {}
func (*CaptureKind) keyword() string { return "capture" }

// DefKind defines a function whose body is this block's children. Calling
// it renders the body with Params bound positionally.
type DefKind struct {
	Name   string
	Params []string
}

func (*DefKind) blockKind()      {}
func (*DefKind) keyword() string { return "def" }

// CommentKind marks a block whose children are discarded at execution time.
type CommentKind struct{}

func (*CommentKind) blockKind()      {}
func (*CommentKind) keyword() string { return "comment" }

// EndKind closes an open block. An empty Target closes any block; a named
// target must equal the keyword of the block it closes.
type EndKind struct {
	Target string
}

func (*EndKind) blockKind()      {}
func (*EndKind) keyword() string { return "" }
