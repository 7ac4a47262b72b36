package gavel

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// token is a lexical token in rule text.
type token struct {
	kind tokenKind
	text string  // identifier name, string contents or source text of the token
	num  float64 // for tokNumber
	pos  int     // byte offset in the input
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokAnd
	tokOr
	tokEq
	tokNotEq
	tokGt
	tokGte
	tokLt
	tokLte
	tokLParen
	tokRParen
	// tokUnsupported is an operator or keyword that is recognised, but not part
	// of the rule language (not, in, is, &&, ||, !, =).
	tokUnsupported
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of rule"
	case tokIdent:
		return "identifier"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokAnd:
		return "'and'"
	case tokOr:
		return "'or'"
	case tokEq:
		return "'=='"
	case tokNotEq:
		return "'!='"
	case tokGt:
		return "'>'"
	case tokGte:
		return "'>='"
	case tokLt:
		return "'<'"
	case tokLte:
		return "'<='"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokUnsupported:
		return "unsupported operator"
	default:
		return "unknown"
	}
}

// describe names the token for error messages.
func (t token) describe() string {
	switch t.kind {
	case tokIdent:
		return "identifier '" + t.text + "'"
	case tokNumber:
		return "number " + t.text
	case tokString:
		return "string " + quote(t.text)
	case tokUnsupported:
		return "'" + t.text + "'"
	default:
		return t.kind.String()
	}
}

func (t token) isComparison() bool {
	switch t.kind {
	case tokEq, tokNotEq, tokGt, tokGte, tokLt, tokLte:
		return true
	}
	return false
}

func (t token) isLiteral() bool {
	return t.kind == tokNumber || t.kind == tokString
}

// unsupportedHints explains the tokUnsupported operators.
var unsupportedHints = map[string]string{
	"not": "negation is not supported",
	"in":  "membership tests are not supported",
	"is":  "identity tests are not supported",
	"&&":  "use 'and' instead of '&&'",
	"||":  "use 'or' instead of '||'",
	"!":   "negation is not supported",
	"=":   "use '==' to test equality",
}

// lexer splits rule text into tokens.
type lexer struct {
	input string
	pos   int
}

// lex tokenizes the entire input. The last token is always tokEOF.
func lex(input string) ([]token, error) {
	l := &lexer{input: input}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	ch, _ := utf8.DecodeRuneInString(l.input[l.pos:])

	switch ch {
	case '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case '=':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{kind: tokEq, text: "==", pos: start}, nil
		}
		l.pos++
		return token{kind: tokUnsupported, text: "=", pos: start}, nil
	case '!':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{kind: tokNotEq, text: "!=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokUnsupported, text: "!", pos: start}, nil
	case '>':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{kind: tokGte, text: ">=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokGt, text: ">", pos: start}, nil
	case '<':
		if l.peek(1) == '=' {
			l.pos += 2
			return token{kind: tokLte, text: "<=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokLt, text: "<", pos: start}, nil
	case '&':
		if l.peek(1) == '&' {
			l.pos += 2
			return token{kind: tokUnsupported, text: "&&", pos: start}, nil
		}
	case '|':
		if l.peek(1) == '|' {
			l.pos += 2
			return token{kind: tokUnsupported, text: "||", pos: start}, nil
		}
	case '\'', '"':
		return l.scanString(ch)
	}

	if isDigit(ch) || (ch == '.' && isDigit(l.peek(1))) ||
		(ch == '-' && (isDigit(l.peek(1)) || (l.peek(1) == '.' && isDigit(l.peek(2))))) {
		return l.scanNumber()
	}

	if isIdentStart(ch) {
		return l.scanIdent(), nil
	}

	return token{}, syntaxError(l.input, start, "unexpected character %q", ch)
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// peek returns the byte at offset from the current position, or 0 past the end.
func (l *lexer) peek(offset int) rune {
	if p := l.pos + offset; p < len(l.input) {
		return rune(l.input[p])
	}
	return 0
}

func (l *lexer) scanString(q rune) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder

	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == q {
			l.pos += size
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		if r == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			e, size := utf8.DecodeRuneInString(l.input[l.pos:])
			switch e {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(e)
			}
			l.pos += size
			continue
		}
		sb.WriteRune(r)
		l.pos += size
	}

	return token{}, syntaxError(l.input, start, "unterminated string")
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	if l.input[l.pos] == '-' {
		l.pos++
	}
	l.digits()
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		l.digits()
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
			l.pos++
		}
		if !isDigit(l.peek(0)) {
			return token{}, syntaxError(l.input, start, "malformed number %q", l.input[start:l.pos])
		}
		l.digits()
	}

	// 30abc or 1.2.3
	if l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if isIdentChar(r) || r == '.' {
			return token{}, syntaxError(l.input, start, "malformed number %q", l.input[start:l.pos+size])
		}
	}

	text := l.input[start:l.pos]
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, syntaxError(l.input, start, "malformed number %q", text)
	}
	return token{kind: tokNumber, text: text, num: num, pos: start}, nil
}

func (l *lexer) digits() {
	for l.pos < len(l.input) && isDigit(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *lexer) scanIdent() token {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentChar(r) {
			break
		}
		l.pos += size
	}

	text := l.input[start:l.pos]
	switch strings.ToLower(text) {
	case "and":
		return token{kind: tokAnd, text: text, pos: start}
	case "or":
		return token{kind: tokOr, text: text, pos: start}
	case "not", "in", "is":
		return token{kind: tokUnsupported, text: strings.ToLower(text), pos: start}
	}
	return token{kind: tokIdent, text: text, pos: start}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
