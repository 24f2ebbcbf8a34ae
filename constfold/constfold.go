// Package constfold folds the condition of an ast.If down to a compile-time
// known boolean where possible, so compiler/lower.go's branch elision rule
// (spec §4.7 "compile-time-known truthy/falsy", property P8: a statically
// true/false condition compiles the live branch only, with no OP_BRANCH*
// emitted at all) has something to act on.
//
// This is the one piece of interpreter/ worth keeping: everything else in
// that tree-walk evaluator (environment bindings, full expression
// evaluation) has no home once the frontend resolves types statically, but
// its truthiness rule — nil is false, a bool literal is itself, every other
// value is true — is exactly the rule a constant condition needs folded
// against.
package constfold

import "opal/ast"

// truthy mirrors interpreter.TreeWalkInterpreter.isTrue: nil is false, a
// bool is itself, anything else is true.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// literalValue extracts the Go value a literal node carries, or reports
// false for any node whose value is not known at parse time.
func literalValue(n ast.Node) (any, bool) {
	switch lit := n.(type) {
	case ast.NilLiteral:
		return nil, true
	case ast.BoolLiteral:
		return lit.Value, true
	case ast.NumberLiteral:
		if lit.IsFloat {
			return lit.Float, true
		}
		return lit.Int, true
	case ast.CharLiteral:
		return lit.Value, true
	case ast.StringLiteral:
		return lit.Value, true
	default:
		return nil, false
	}
}

// KnownBool reports whether cond's truth value can be determined purely
// from its literal shape, without evaluating anything at runtime. Used by
// the parser to stamp ast.If.StaticCond so the lowering pass can elide the
// branch it already knows will never be taken.
func KnownBool(cond ast.Node) (value bool, known bool) {
	v, ok := literalValue(cond)
	if !ok {
		return false, false
	}
	return truthy(v), true
}
