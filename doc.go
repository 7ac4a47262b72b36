// Package gavel compiles boolean rules written in a small expression language and
// evaluates them against records of named values.
//
// A rule is a set of comparisons between a field and a literal, joined with "and"
// and "or" and grouped with parentheses:
//
//	age > 30 and department == 'Sales'
//	(age > 30 and department == 'Sales') or (age < 25 and department == 'Marketing')
//
// Typical use is as follows:
//
//  1. Compile the rule text into a Node
//  2. Evaluate the Node against a record (a map[string]any)
//  3. Inspect the verdict or the error
//
// The compiled Node is an immutable binary tree with two kinds of nodes: Operand
// leaves, which compare one field to one literal, and BoolOp nodes, which combine
// exactly two children with And or Or. A chain such as "a and b and c" becomes
// ((a and b) and c).
//
// # Comparison Rules
//
// Numbers compare numerically regardless of whether the record holds an int, a float or
// a json.Number. Text compares by content, and ordering operators on text use
// lexicographic order. Any other pairing, for example a text field compared to a
// numeric literal, fails with ErrTypeMismatch. Values are never coerced.
//
// And stops at the first false child and Or stops at the first true child. The
// skipped child is never evaluated, so a missing field or a type mismatch on the skipped
// side does not produce an error.
//
// # The Active Rule
//
// Compile and Evaluate are pure functions. Applications that hold "the current rule"
// for many callers should use a Vault, which stores one compiled Rule behind an atomic
// pointer. A successful compile replaces the active rule; a failed compile leaves it in
// place. Each evaluation takes one snapshot of the rule at the start, so a concurrent
// recompile never affects an evaluation in progress.
//
// # Diagnostics
//
// Trace evaluates a rule exactly like Evaluate, and also returns a Diagnostics tree
// showing which comparisons passed, failed or were skipped. Diagnostics.AsString renders
// it as a report.
//
// # Other Evaluators
//
// The Evaluator interface lets a Vault use a different evaluation backend. The
// gavel/cel package provides one backed by Google's Common Expression Language.
package gavel
