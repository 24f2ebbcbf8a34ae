package constfold

import (
	"testing"

	"opal/ast"
	"opal/types"
)

var pos = ast.Pos{Line: 1, Column: 1}

func TestKnownBoolNilLiteralIsFalse(t *testing.T) {
	value, known := KnownBool(ast.NewNilLiteral(pos))
	if !known || value {
		t.Fatalf("expected nil literal to fold to known-false, got value=%v known=%v", value, known)
	}
}

func TestKnownBoolBoolLiteralMatchesItself(t *testing.T) {
	if value, known := KnownBool(ast.NewBoolLiteral(true, pos)); !known || !value {
		t.Fatalf("expected `true` to fold to known-true, got value=%v known=%v", value, known)
	}
	if value, known := KnownBool(ast.NewBoolLiteral(false, pos)); !known || value {
		t.Fatalf("expected `false` to fold to known-false, got value=%v known=%v", value, known)
	}
}

// TestKnownBoolNonBoolLiteralsAreTruthy covers the "anything else is true"
// half of the rule: a zero int, a zero float, a char and an empty string are all truthy even
// though none of them is the literal `true`.
func TestKnownBoolNonBoolLiteralsAreTruthy(t *testing.T) {
	cases := []ast.Node{
		ast.NewIntLiteral(0, types.NewInt(32), pos),
		ast.NewFloatLiteral(0, types.NewFloat(64), pos),
		ast.NewCharLiteral('x', pos),
		ast.NewStringLiteral("", types.String, pos),
	}
	for _, n := range cases {
		value, known := KnownBool(n)
		if !known || !value {
			t.Errorf("expected %T to fold to known-true regardless of its zero-ish payload, got value=%v known=%v", n, value, known)
		}
	}
}

// TestKnownBoolNonLiteralIsUnknown confirms a condition whose shape the
// parser can't see through at parse time (a variable read) is reported as
// not statically known, so the lowering pass keeps both branches and emits a
// real OP_BRANCH*.
func TestKnownBoolNonLiteralIsUnknown(t *testing.T) {
	v := ast.NewVar("flag", types.Bool, pos)
	if _, known := KnownBool(v); known {
		t.Fatalf("expected a variable read to not be statically known")
	}
}
