package gavel

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Vault holds the active rule: at most one compiled Rule that every evaluation
// uses until a new rule replaces it.
//
// The rule is stored behind an atomic pointer. Replacing it never blocks
// evaluations, and each evaluation reads the pointer exactly once, so it sees
// either the old rule or the new one, never a mix.
type Vault struct {
	active         atomic.Pointer[Rule]
	evaluator      Evaluator
	compileOptions []CompileOption
	now            func() time.Time
}

// VaultOption configures a Vault.
type VaultOption func(v *Vault)

// WithEvaluator sets the Evaluator used by Vault.Evaluate.
// Default: Interpreter{}
func WithEvaluator(e Evaluator) VaultOption {
	return func(v *Vault) {
		v.evaluator = e
	}
}

// WithCompileOptions sets the options Vault.Compile passes to Compile.
func WithCompileOptions(opts ...CompileOption) VaultOption {
	return func(v *Vault) {
		v.compileOptions = opts
	}
}

// WithClock sets the function used to timestamp rules.
// Default: time.Now
func WithClock(now func() time.Time) VaultOption {
	return func(v *Vault) {
		v.now = now
	}
}

// NewVault creates an empty Vault. Evaluate returns ErrNoActiveRule until a
// rule has been stored with Compile or Set.
func NewVault(opts ...VaultOption) *Vault {
	v := &Vault{
		evaluator: Interpreter{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Compile compiles the text and, if successful, makes it the active rule.
// If compilation fails the active rule is not changed.
func (v *Vault) Compile(text string) (*Rule, error) {
	root, err := Compile(text, v.compileOptions...)
	if err != nil {
		return nil, err
	}
	return v.Set(root, text), nil
}

// Set makes root the active rule, and returns the stored Rule.
// text is the source of the rule, kept for display.
func (v *Vault) Set(root Node, text string) *Rule {
	r := &Rule{
		ID:       uuid.NewString(),
		Text:     text,
		Root:     root,
		Compiled: v.now(),
	}
	v.active.Store(r)
	return r
}

// Get returns the active rule, or false if there is none.
func (v *Vault) Get() (*Rule, bool) {
	r := v.active.Load()
	return r, r != nil
}

// Clear removes the active rule.
func (v *Vault) Clear() {
	v.active.Store(nil)
}

// Evaluate evaluates the active rule against the record.
// It returns ErrNoActiveRule if no rule has been stored.
func (v *Vault) Evaluate(data map[string]any) (bool, error) {
	r, ok := v.Get()
	if !ok {
		return false, ErrNoActiveRule
	}
	pass, err := v.evaluator.Evaluate(r.Root, data)
	if err != nil {
		return false, fmt.Errorf("evaluating rule %s: %w", r.ID, err)
	}
	return pass, nil
}

// Explain evaluates the active rule with Trace, returning the rule that was used
// along with the diagnostics. The configured Evaluator is not used.
func (v *Vault) Explain(data map[string]any) (*Rule, bool, *Diagnostics, error) {
	r, ok := v.Get()
	if !ok {
		return nil, false, nil, ErrNoActiveRule
	}
	pass, d, err := Trace(r.Root, data)
	if err != nil {
		return r, false, d, fmt.Errorf("evaluating rule %s: %w", r.ID, err)
	}
	return r, pass, d, nil
}
