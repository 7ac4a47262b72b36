package gavel_test

import (
	"flag"
	"sync"
	"testing"
	"time"

	"github.com/ezachrisen/gavel"
)

// Set flag with go test -run=MyTest --debug=true
// to print verbose rule diagnostic info
var debugOutput bool

func init() {
	flag.BoolVar(&debugOutput, "debug", false, "Enable detailed logging for tests")
}

func debugLogf(t *testing.T, format string, args ...any) {
	t.Helper()
	if debugOutput {
		t.Logf(format, args...)
	}
}

// -------------------------------------------------- MOCK EVALUATOR
// mockEvaluator is used for testing
// It delegates to the interpreter and records the rules it was asked to evaluate.
type mockEvaluator struct {
	mu    sync.Mutex
	rules []string // canonical text of each rule evaluated, in order

	// Introduce an artificial delay in evaluating the expression.
	// Used for testing that a rule replaced mid-evaluation is still used to completion.
	evalDelay time.Duration
}

func newMockEvaluator() *mockEvaluator {
	return &mockEvaluator{}
}

func (m *mockEvaluator) Evaluate(n gavel.Node, data map[string]any) (bool, error) {
	time.Sleep(m.evalDelay)
	m.mu.Lock()
	m.rules = append(m.rules, n.String())
	m.mu.Unlock()
	return gavel.Evaluate(n, data)
}

func (m *mockEvaluator) evaluated() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.rules...)
}
