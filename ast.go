package gavel

import (
	"sort"
	"strings"
)

// Node is a compiled rule, or a part of one. The only implementations are
// Operand and BoolOp.
//
// Nodes are values: once built by Compile they are never modified, and
// may be shared freely between goroutines.
type Node interface {
	// String returns the canonical text of the node. Compiling the
	// canonical text produces an equal node.
	String() string

	node()
}

// ComparisonOp is the operator in an Operand.
type ComparisonOp int

const (
	Eq ComparisonOp = iota
	NotEq
	Gt
	Lt
	Gte
	Lte
)

func (op ComparisonOp) String() string {
	switch op {
	case Eq:
		return "=="
	case NotEq:
		return "!="
	case Gt:
		return ">"
	case Lt:
		return "<"
	case Gte:
		return ">="
	case Lte:
		return "<="
	default:
		return "?"
	}
}

// Connective is the boolean operator in a BoolOp.
type Connective int

const (
	And Connective = iota
	Or
)

func (c Connective) String() string {
	switch c {
	case And:
		return "and"
	case Or:
		return "or"
	default:
		return "?"
	}
}

// Operand compares the value of a field in the record to a literal.
// It is always a leaf.
type Operand struct {
	Field   string
	Op      ComparisonOp
	Literal Value
}

func (Operand) node() {}

func (o Operand) String() string {
	return o.Field + " " + o.Op.String() + " " + o.Literal.String()
}

// BoolOp combines exactly two nodes with And or Or.
type BoolOp struct {
	Op    Connective
	Left  Node
	Right Node
}

func (BoolOp) node() {}

func (b BoolOp) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(nodeString(b.Left))
	sb.WriteString(" ")
	sb.WriteString(b.Op.String())
	sb.WriteString(" ")
	sb.WriteString(nodeString(b.Right))
	sb.WriteString(")")
	return sb.String()
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// Walk calls f for n and each of its descendants in pre-order (a BoolOp before
// its left subtree, the left subtree before the right). depth is 0 for n.
// If f returns false, the children of that node are not visited.
func Walk(n Node, f func(n Node, depth int) bool) {
	walk(n, 0, f)
}

func walk(n Node, depth int, f func(Node, int) bool) {
	if n == nil {
		return
	}
	if !f(n, depth) {
		return
	}
	if b, ok := n.(BoolOp); ok {
		walk(b.Left, depth+1, f)
		walk(b.Right, depth+1, f)
	}
}

// Fields returns the sorted, de-duplicated names of the fields the rule refers to.
func Fields(n Node) []string {
	seen := map[string]bool{}
	Walk(n, func(n Node, _ int) bool {
		if o, ok := n.(Operand); ok {
			seen[o.Field] = true
		}
		return true
	})
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Count returns the number of BoolOp and Operand nodes in the rule.
func Count(n Node) (boolOps, operands int) {
	Walk(n, func(n Node, _ int) bool {
		switch n.(type) {
		case BoolOp:
			boolOps++
		case Operand:
			operands++
		}
		return true
	})
	return boolOps, operands
}

// Depth returns the number of levels in the rule. A single Operand has depth 1.
func Depth(n Node) int {
	deepest := 0
	Walk(n, func(_ Node, d int) bool {
		if d+1 > deepest {
			deepest = d + 1
		}
		return true
	})
	return deepest
}
