package gavel

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/markbates/inflect"
)

// maxTreeDepth limits how many levels Tree draws.
const maxTreeDepth = 64

// Tree returns a tree representation of the rule, with box-drawing characters
// showing how comparisons are combined. Recursion is limited to 64 levels.
//
// Example output for "age > 30 and (department == 'Sales' or tenure >= 5)":
//
//	and
//	├── age > 30
//	└── or
//	    ├── department == 'Sales'
//	    └── tenure >= 5
func Tree(n Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(label(n))
	sb.WriteString("\n")
	buildTree(&sb, n, "", 0)
	return sb.String()
}

func label(n Node) string {
	if b, ok := n.(BoolOp); ok {
		return b.Op.String()
	}
	return n.String()
}

// buildTree recursively writes the children of n with the proper indentation
// and tree characters (├──, └──, │).
func buildTree(sb *strings.Builder, n Node, prefix string, depth int) {
	if depth >= maxTreeDepth {
		return
	}
	b, ok := n.(BoolOp)
	if !ok {
		return
	}
	children := []Node{b.Left, b.Right}
	for i, child := range children {
		var connector, childPrefix string
		if i == len(children)-1 {
			connector = "└── "
			childPrefix = "    "
		} else {
			connector = "├── "
			childPrefix = "│   "
		}

		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(label(child))
		sb.WriteString("\n")
		buildTree(sb, child, prefix+childPrefix, depth+1)
	}
}

// Describe returns a table listing every node of the rule in pre-order.
func Describe(n Node) string {
	tw := table.NewWriter()
	tw.SetTitle("\nGAVEL RULE\n")
	tw.AppendHeader(table.Row{"#", "Node", "Kind", "Field", "Operator", "Literal"})

	i := 0
	Walk(n, func(n Node, depth int) bool {
		indent := strings.Repeat("  ", depth)
		switch n := n.(type) {
		case BoolOp:
			tw.AppendRow(table.Row{i, indent + n.Op.String(), "BoolOp", "", "", ""})
		case Operand:
			tw.AppendRow(table.Row{
				i,
				indent + n.String(),
				"Operand",
				n.Field,
				n.Op.String(),
				fmt.Sprintf("%s (%s)", n.Literal, n.Literal.Kind()),
			})
		}
		i++
		return true
	})

	boolOps, operands := Count(n)
	tw.AppendFooter(table.Row{"", countOf(boolOps, "connective") + ", " + countOf(operands, "comparison")})

	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

func countOf(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %s", n, inflect.Pluralize(word))
}
