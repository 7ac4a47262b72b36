package gavel

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/Delta456/box-cli-maker/v2"
	"github.com/alexeyco/simpletable"
)

// Outcome is the result of one node in a traced evaluation.
type Outcome int

const (
	Skipped Outcome = iota // not evaluated because of short-circuiting, or after an error
	Passed
	Failed
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Errored:
		return "ERROR"
	default:
		return "skipped"
	}
}

func outcomeOf(pass bool) Outcome {
	if pass {
		return Passed
	}
	return Failed
}

// Diagnostics describes how one node of a rule was evaluated. The Children mirror
// the children of the node.
type Diagnostics struct {
	// Canonical text of the node
	Expr string

	// "and", "or" or "comparison"
	Kind string

	Outcome Outcome

	// The record value an Operand compared, as written in a rule. Empty if the
	// node is a BoolOp or the field is missing.
	Input string

	// Error message, if the Outcome is Errored
	Err string

	// Pre-order position of the node in the rule, starting at 0
	Position int

	// Distance from the root of the rule
	Depth int

	Children []Diagnostics
}

// Trace evaluates the rule like Evaluate, and records the outcome of every node.
// The Diagnostics are returned even when evaluation fails; the node that failed has
// Outcome Errored and nodes after it are Skipped.
func Trace(n Node, data map[string]any) (bool, *Diagnostics, error) {
	if n == nil {
		return false, nil, errNilNode
	}
	t := tracer{data: data}
	d, pass, err := t.trace(n, 0)
	return pass, &d, err
}

type tracer struct {
	data map[string]any
	pos  int
}

func (t *tracer) trace(n Node, depth int) (Diagnostics, bool, error) {
	d := Diagnostics{Expr: nodeString(n), Position: t.pos, Depth: depth}
	t.pos++

	switch n := n.(type) {
	case BoolOp:
		d.Kind = n.Op.String()
		left, pass, err := t.trace(n.Left, depth+1)
		d.Children = append(d.Children, left)
		if err != nil {
			d.Outcome, d.Err = Errored, err.Error()
			d.Children = append(d.Children, t.skip(n.Right, depth+1))
			return d, false, err
		}
		if (n.Op == And && !pass) || (n.Op == Or && pass) {
			d.Outcome = outcomeOf(pass)
			d.Children = append(d.Children, t.skip(n.Right, depth+1))
			return d, pass, nil
		}
		right, pass, err := t.trace(n.Right, depth+1)
		d.Children = append(d.Children, right)
		if err != nil {
			d.Outcome, d.Err = Errored, err.Error()
			return d, false, err
		}
		d.Outcome = outcomeOf(pass)
		return d, pass, nil

	case Operand:
		d.Kind = "comparison"
		if raw, ok := t.data[n.Field]; ok {
			if v, err := ValueOf(raw); err == nil {
				d.Input = v.String()
			} else {
				d.Input = fmt.Sprintf("%v", raw)
			}
		}
		pass, err := evaluateOperand(n, t.data)
		if err != nil {
			d.Outcome, d.Err = Errored, err.Error()
			return d, false, err
		}
		d.Outcome = outcomeOf(pass)
		return d, pass, nil

	case nil:
		d.Outcome, d.Err = Errored, errNilNode.Error()
		return d, false, errNilNode

	default:
		err := fmt.Errorf("unknown node type %T", n)
		d.Outcome, d.Err = Errored, err.Error()
		return d, false, err
	}
}

// skip records n and its descendants as Skipped.
func (t *tracer) skip(n Node, depth int) Diagnostics {
	d := Diagnostics{Expr: nodeString(n), Position: t.pos, Depth: depth, Outcome: Skipped}
	t.pos++
	switch n := n.(type) {
	case BoolOp:
		d.Kind = n.Op.String()
		d.Children = append(d.Children, t.skip(n.Left, depth+1), t.skip(n.Right, depth+1))
	case Operand:
		d.Kind = "comparison"
	}
	return d
}

// AsString renders a report of the evaluation: the rule text, a table of the
// nodes in the order they appear in the rule, and, if data is not nil, the
// input record.
func (d *Diagnostics) AsString(text string, data map[string]any) string {
	b := box.New(box.Config{Px: 2, Py: 1, Type: "Double", TitlePos: "Top", ContentAlign: "Left"})

	s := strings.Builder{}
	if text != "" {
		s.WriteString("Rule:\n")
		s.WriteString("-----\n")
		s.WriteString(wrap(text, 100))
		s.WriteString("\n\n")
	}

	s.WriteString("Evaluation:\n")
	s.WriteString("-----------\n")
	s.WriteString(d.diagnosticTable().String())

	if data != nil {
		s.WriteString("\n\n")
		s.WriteString("Input Data:\n")
		s.WriteString("-----------\n")
		s.WriteString(dataTable(data).String())
	}
	return b.String("GAVEL EVALUATION REPORT", s.String())
}

func (d *Diagnostics) diagnosticTable() *simpletable.Table {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "#"},
			{Align: simpletable.AlignCenter, Text: "Expression"},
			{Align: simpletable.AlignCenter, Text: "Input"},
			{Align: simpletable.AlignCenter, Text: "Outcome"},
			{Align: simpletable.AlignCenter, Text: "Error"},
		},
	}

	for _, cd := range inPositionOrder(d) {
		expr := cd.Expr
		if cd.Kind != "comparison" {
			expr = cd.Kind
		}
		r := []*simpletable.Cell{
			{Align: simpletable.AlignRight, Text: fmt.Sprintf("%d", cd.Position)},
			{Text: strings.Repeat("  ", cd.Depth) + expr},
			{Text: cd.Input},
			{Text: cd.Outcome.String()},
			{Text: cd.Err},
		}
		table.Body.Cells = append(table.Body.Cells, r)
	}

	table.SetStyle(simpletable.StyleUnicode)
	return table
}

func dataTable(data map[string]any) *simpletable.Table {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "Name"},
			{Align: simpletable.AlignCenter, Text: "Value"},
		},
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		r := []*simpletable.Cell{
			{Text: k},
			{Text: fmt.Sprintf("%v", data[k])},
		}
		table.Body.Cells = append(table.Body.Cells, r)
	}

	table.SetStyle(simpletable.StyleUnicode)
	return table
}

// inPositionOrder lists d and all its descendants sorted by Position.
func inPositionOrder(d *Diagnostics) []*Diagnostics {
	var l []*Diagnostics
	var collect func(d *Diagnostics)
	collect = func(d *Diagnostics) {
		l = append(l, d)
		for i := range d.Children {
			collect(&d.Children[i])
		}
	}
	collect(d)
	slices.SortFunc(l, func(a, b *Diagnostics) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return l
}

// wrap breaks text into lines of at most width bytes, at spaces.
func wrap(text string, width int) string {
	var sb strings.Builder
	n := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
		case n+1+len(word) > width:
			sb.WriteByte('\n')
			n = 0
		default:
			sb.WriteByte(' ')
			n++
		}
		sb.WriteString(word)
		n += len(word)
	}
	return sb.String()
}
