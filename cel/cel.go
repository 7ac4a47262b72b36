package cel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ezachrisen/gavel"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Evaluator is a gavel.Evaluator that runs rules as CEL programs.
// It is safe for concurrent use.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*program
}

// program is a compiled rule. vars[i] is the record field bound to the CEL variable varName(i).
type program struct {
	prg  cel.Program
	vars []string
}

// NewEvaluator creates an Evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		programs: map[string]*program{},
	}
}

// Evaluate the rule against the record, compiling it to a CEL program on first use.
func (e *Evaluator) Evaluate(n gavel.Node, data map[string]any) (bool, error) {
	if n == nil {
		return false, fmt.Errorf("evaluating a nil rule")
	}

	p, err := e.program(n)
	if err != nil {
		return false, err
	}

	activation := make(map[string]any, len(p.vars))
	for i, field := range p.vars {
		raw, ok := data[field]
		if !ok {
			continue
		}
		// a value gavel cannot compare fails any comparison that reads it
		if v, err := gavel.ValueOf(raw); err == nil {
			activation[varName(i)] = v.Interface()
		} else {
			activation[varName(i)] = types.NewErr("field %q: %v", field, err)
		}
	}

	out, _, err := p.prg.Eval(activation)
	if err != nil {
		return false, evalError(n, data, err)
	}

	pass, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %s produced %T, not bool", n, out.Value())
	}
	return pass, nil
}

// Len returns the number of cached programs.
func (e *Evaluator) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}

// Reset empties the program cache.
func (e *Evaluator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs = map[string]*program{}
}

func (e *Evaluator) program(n gavel.Node) (*program, error) {
	key := n.String()

	e.mu.RLock()
	p, ok := e.programs[key]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := compile(n)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.programs[key]; ok {
		return existing, nil
	}
	e.programs[key] = p
	return p, nil
}

// compile translates the rule to CEL, then parses, checks and plans the expression.
func compile(n gavel.Node) (*program, error) {
	vars := variables(n)
	index := make(map[string]int, len(vars))
	opts := equality()
	for i, field := range vars {
		index[field] = i
		opts = append(opts, cel.Variable(varName(i), cel.DynType))
	}

	src, err := translate(n, func(field string) string {
		return varName(index[field])
	})
	if err != nil {
		return nil, err
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compiling %s: %w", src, iss.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("generating program for %s: %w", src, err)
	}
	return &program{prg: prg, vars: vars}, nil
}

// evalError converts a CEL evaluation error into the gavel error types. CEL
// errors do not name the field that failed, so the rule is replayed with
// gavel.Evaluate, which stops at the same comparison.
func evalError(n gavel.Node, data map[string]any, err error) error {
	_, nerr := gavel.Evaluate(n, data)

	var mf *gavel.MissingFieldError
	if errors.As(nerr, &mf) {
		return mf
	}
	var tm *gavel.TypeMismatchError
	if errors.As(nerr, &tm) {
		tm.Err = err
		return tm
	}
	return &gavel.TypeMismatchError{Err: err}
}

func operands(n gavel.Node) []gavel.Operand {
	var ops []gavel.Operand
	gavel.Walk(n, func(n gavel.Node, _ int) bool {
		if o, ok := n.(gavel.Operand); ok {
			ops = append(ops, o)
		}
		return true
	})
	return ops
}

// variables returns the fields of the rule in the order they first appear.
func variables(n gavel.Node) []string {
	var vars []string
	seen := map[string]bool{}
	for _, o := range operands(n) {
		if !seen[o.Field] {
			seen[o.Field] = true
			vars = append(vars, o.Field)
		}
	}
	return vars
}

func varName(i int) string {
	return fmt.Sprintf("v%d", i)
}
