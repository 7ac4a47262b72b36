package gavel

import "fmt"

const defaultMaxDepth = 256

// CompileOptions control how rule text is compiled. Set them with CompileOption
// functions.
type CompileOptions struct {
	// Maximum nesting of parenthesised expressions
	MaxDepth int
}

// CompileOption sets one of the CompileOptions.
type CompileOption func(o *CompileOptions)

// MaxDepth limits how deeply parentheses may be nested in a rule. The whole rule
// counts as one level, so MaxDepth(1) allows no parentheses at all. Deeper rules
// fail to compile with ErrSyntax.
// Default: 256
func MaxDepth(n int) CompileOption {
	return func(o *CompileOptions) {
		o.MaxDepth = n
	}
}

func applyCompileOptions(o *CompileOptions, opts ...CompileOption) {
	for _, opt := range opts {
		opt(o)
	}
}

// Compile parses rule text into a Node.
//
// Errors are always a *CompileError whose Kind is ErrSyntax, for text that does not
// parse, or ErrUnsupported, for constructs outside the rule language such as
// comparing two fields. Compile does not evaluate anything and has no side effects.
func Compile(text string, opts ...CompileOption) (Node, error) {
	o := CompileOptions{MaxDepth: defaultMaxDepth}
	applyCompileOptions(&o, opts...)
	if o.MaxDepth < 1 {
		o.MaxDepth = 1
	}

	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}

	if len(tokens) == 1 {
		return nil, syntaxError(text, 0, "empty rule")
	}

	p := &parser{input: text, tokens: tokens, maxDepth: o.MaxDepth}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.match(tokEOF) {
		return nil, p.unexpected("'and', 'or' or the end of the rule")
	}
	return n, nil
}

// MustCompile is like Compile but panics if the rule cannot be compiled.
// It simplifies initialization of variables holding fixed rules.
func MustCompile(text string, opts ...CompileOption) Node {
	n, err := Compile(text, opts...)
	if err != nil {
		panic(fmt.Sprintf("gavel: Compile(%q): %v", text, err))
	}
	return n
}
