// Package cel provides an implementation of the gavel.Evaluator interface backed by Google's cel-go rules engine.
//
// See https://github.com/google/cel-go and https://opensource.google/projects/cel for more information
// about CEL.
//
// Rules are compiled with gavel.Compile as usual. The first time the Evaluator sees a rule it translates
// it to a CEL expression, compiles that expression to a CEL program and caches the program, keyed by
// the canonical text of the rule. Later evaluations of the same rule reuse the program.
//
// # Translation
//
// "a and b" becomes the conditional (a ? b : false) and "a or b" becomes (a ? true : b), so the
// left side is always evaluated first and the right side only when the left does not decide the result. Numeric
// literals become CEL doubles and text literals become CEL strings. == and != become calls to
// gavel_eq and gavel_ne, which fail when the record value and the literal have different types,
// as the native evaluator does. Fields are bound to generated variable names, so a field may be
// called anything the rule language accepts, including names that are reserved words in CEL such
// as "null" or "package". Use Source to see the CEL expression for a rule, with the field names
// in place.
//
// Record values are converted with gavel.ValueOf before evaluation, so integers of any Go type compare
// as doubles.
//
// # Errors
//
// Errors are reported with the gavel error types, for the same comparison the native evaluator
// would stop at: a *gavel.MissingFieldError if the field is missing from the record, otherwise a
// *gavel.TypeMismatchError wrapping the CEL error.
package cel
