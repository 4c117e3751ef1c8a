package engine

import (
	"sort"
	"strings"
	"unicode"
)

// classifyBlock identifies the concrete directive of a block tag body.
// Rules are tried in order and the first match wins.
func classifyBlock(body string, loc Loc) (BlockKind, error) {
	s := strings.TrimSpace(body)

	if s == "" || strings.HasPrefix(s, "end") {
		target := ""
		if strings.HasPrefix(s, "end") {
			target = strings.TrimSpace(s[len("end"):])
		}
		return &EndKind{Target: target}, nil
	}

	for _, tag := range []string{"elif", "else", "if"} {
		if !strings.HasPrefix(s, tag) {
			continue
		}
		expr := strings.TrimSpace(s[len(tag):])
		if tag == "else" {
			if expr != "" {
				return nil, errExpressionProhibited(tag, loc)
			}
			expr = "True"
		}
		if expr == "" {
			return nil, errExpressionMissing(tag, loc)
		}
		return &IfKind{Tag: tag, Expr: expr}, nil
	}

	if strings.HasPrefix(s, "for ") {
		targets, err := findForTargets(s, loc)
		if err != nil {
			return nil, err
		}
		genexpr := "((" + strings.Join(targets, ", ") + ") " + s + ")"
		return &ForKind{Targets: targets, GenExpr: genexpr}, nil
	}

	if strings.HasPrefix(s, "while ") {
		expr := strings.TrimSpace(s[len("while "):])
		dofirst := false
		if strings.HasPrefix(expr, "dofirst ") {
			dofirst = true
			expr = strings.TrimSpace(expr[len("dofirst "):])
		}
		slow := false
		if strings.HasSuffix(expr, " slow") {
			slow = true
			expr = strings.TrimSpace(expr[:len(expr)-len(" slow")])
		}
		return &WhileKind{Expr: expr, DoFirst: dofirst, Slow: slow}, nil
	}

	if strings.HasPrefix(s, "capture ") {
		name := strings.TrimSpace(s[len("capture "):])
		if !isIdentifier(name) {
			return nil, errInvalidCaptureVar(name, loc)
		}
		return &CaptureKind{Var: name}, nil
	}

	if s == "def" || strings.HasPrefix(s, "def ") {
		parts := strings.Fields(strings.TrimPrefix(s, "def"))
		if len(parts) == 0 {
			return nil, errInvalidDefName("", loc)
		}
		for _, p := range parts {
			if !isIdentifier(p) {
				return nil, errInvalidDefName(p, loc)
			}
		}
		return &DefKind{Name: parts[0], Params: parts[1:]}, nil
	}

	if strings.HasPrefix(s, "comment") {
		return &CommentKind{}, nil
	}

	return nil, errUnknownTag(s, loc)
}

// findForTargets extracts the loop variable names from a for directive.
// The permitted grammar is a restricted comprehension form: a
// comma-separated list of identifiers between each for/in keyword pair.
// The scan repeats so chained clauses ("for x in xs for y in x")
// contribute their targets too. The result is sorted and deduplicated.
func findForTargets(src string, loc Loc) ([]string, error) {
	seen := map[string]bool{}
	tokens := strings.Fields(src)

	for {
		forIdx := indexOf(tokens, "for")
		inIdx := indexOf(tokens, "in")
		if forIdx < 0 || inIdx < 0 {
			break
		}
		if inIdx > forIdx {
			candidates := strings.Join(tokens[forIdx+1:inIdx], "")
			for _, cand := range strings.Split(candidates, ",") {
				cand = keepIdentifierChars(cand)
				if isIdentifier(cand) {
					seen[cand] = true
				}
			}
		}
		tokens = tokens[inIdx+1:]
	}

	if len(seen) == 0 {
		return nil, errIncorrectForTag(src, loc)
	}
	targets := make([]string, 0, len(seen))
	for t := range seen {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets, nil
}

func indexOf(tokens []string, want string) int {
	for i, t := range tokens {
		if t == want {
			return i
		}
	}
	return -1
}

func keepIdentifierChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
