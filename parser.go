package gavel

import "fmt"

// parser is a recursive descent parser over the tokens of one rule.
//
//	expr       := or_expr
//	or_expr    := and_expr { "or" and_expr }
//	and_expr   := primary { "and" primary }
//	primary    := "(" expr ")" | comparison
//	comparison := IDENTIFIER ( "==" | "!=" | ">" | "<" | ">=" | "<=" ) LITERAL
type parser struct {
	input    string
	tokens   []token
	pos      int
	depth    int
	maxDepth int
}

func (p *parser) parseExpr() (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, syntaxError(p.input, p.current().pos, "rule is nested more than %d levels deep", p.maxDepth)
	}
	return p.parseOr()
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.match(tokOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BoolOp{Op: Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.match(tokAnd) {
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = BoolOp{Op: And, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Node, error) {
	if p.match(tokLParen) {
		open := p.current()
		p.advance()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.match(tokRParen) {
			if p.match(tokEOF) {
				return nil, syntaxError(p.input, open.pos, "unbalanced parentheses: '(' is never closed")
			}
			return nil, p.unexpected("')'")
		}
		p.advance()
		return n, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	lhs := p.current()
	switch {
	case lhs.kind == tokIdent:
	case lhs.isLiteral() && p.peek(1).isComparison():
		return nil, unsupportedError(p.input, lhs.pos,
			"the left side of a comparison must be a field name, not the %s", lhs.describe())
	default:
		return nil, p.unexpected("a field name")
	}
	p.advance()

	opTok := p.current()
	if !opTok.isComparison() {
		return nil, p.unexpected(fmt.Sprintf("a comparison operator after '%s'", lhs.text))
	}
	p.advance()

	rhs := p.current()
	var lit Value
	switch rhs.kind {
	case tokNumber:
		lit = Number(rhs.num)
	case tokString:
		lit = Text(rhs.text)
	case tokIdent:
		return nil, unsupportedError(p.input, rhs.pos,
			"comparing field '%s' to field '%s' is not supported; the right side must be a literal", lhs.text, rhs.text)
	default:
		return nil, p.unexpected(fmt.Sprintf("a literal after '%s'", opTok.text))
	}
	p.advance()

	if p.current().isComparison() {
		return nil, unsupportedError(p.input, p.current().pos, "chained comparisons are not supported")
	}

	return Operand{Field: lhs.text, Op: comparisonOp(opTok.kind), Literal: lit}, nil
}

func comparisonOp(k tokenKind) ComparisonOp {
	switch k {
	case tokNotEq:
		return NotEq
	case tokGt:
		return Gt
	case tokGte:
		return Gte
	case tokLt:
		return Lt
	case tokLte:
		return Lte
	default:
		return Eq
	}
}

// unexpected reports the current token, which is not what the grammar expects.
func (p *parser) unexpected(want string) error {
	t := p.current()
	if t.kind == tokUnsupported {
		return unsupportedError(p.input, t.pos, "%s", unsupportedHints[t.text])
	}
	if t.kind == tokRParen && p.depth <= 1 {
		return syntaxError(p.input, t.pos, "unbalanced parentheses: unexpected ')'")
	}
	return syntaxError(p.input, t.pos, "expected %s, got %s", want, t.describe())
}

func (p *parser) current() token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return token{kind: tokEOF, pos: len(p.input)}
}

func (p *parser) peek(offset int) token {
	if pos := p.pos + offset; pos < len(p.tokens) {
		return p.tokens[pos]
	}
	return token{kind: tokEOF, pos: len(p.input)}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind tokenKind) bool {
	return p.current().kind == kind
}

func syntaxError(input string, offset int, format string, args ...any) *CompileError {
	return newCompileError(ErrSyntax, input, offset, fmt.Sprintf(format, args...))
}

func unsupportedError(input string, offset int, format string, args ...any) *CompileError {
	return newCompileError(ErrUnsupported, input, offset, fmt.Sprintf(format, args...))
}

func newCompileError(kind error, input string, offset int, msg string) *CompileError {
	line, col := 1, 1
	for _, r := range input[:min(offset, len(input))] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return &CompileError{Kind: kind, Msg: msg, Offset: offset, Line: line, Column: col}
}
