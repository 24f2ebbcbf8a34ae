package compiler

import (
	"testing"

	"opal/ast"
	"opal/types"
)

func dummyNode(t *testing.T) ast.Node {
	t.Helper()
	n := ast.NewCall(nil, "dummy", nil, nil, nil, nil, types.NilType, ast.Pos{Line: 1, Column: 1})
	return n
}

// TestEmitMultidispatchSingleCandidateSkipsCascade confirms a single resolved
// target never touches dupSubject/discriminant: there's nothing to
// disambiguate, so the cascade should collapse to the candidate's body with
// no type test at all.
func TestEmitMultidispatchSingleCandidateSkipsCascade(t *testing.T) {
	buf := NewBuffer()
	node := dummyNode(t)
	def := ast.NewDef("foo", nil, nil, nil, ast.NewExpressions(nil, ast.Pos{}), false, types.NewInt(32), ast.Pos{})

	called := false
	buf.EmitMultidispatch(node, types.NewInt(32), []*ast.Def{def},
		func() { t.Fatalf("dupSubject should not be called for a single candidate") },
		func(*ast.Def) *types.Type { t.Fatalf("discriminant should not be called for a single candidate"); return nil },
		func(d *ast.Def) { called = true },
	)
	if !called {
		t.Fatalf("expected the sole candidate's body to be emitted")
	}
	if len(buf.Bytes()) != 0 {
		t.Fatalf("expected no instructions emitted for a single candidate, got %d bytes", len(buf.Bytes()))
	}
}

// TestEmitMultidispatchReceiverBased covers the §8 scenario 6 receiver-typed
// case: two methods named foo owned by distinct classes, most-specific first.
// Each non-last candidate must be guarded by a REFERENCE_IS_A test against
// its own Owner's type-id, and dupSubject must run once per guarded test.
func TestEmitMultidispatchReceiverBased(t *testing.T) {
	buf := NewBuffer()
	node := dummyNode(t)
	intClass := types.NewClass("Int32Like", false)
	strClass := types.NewClass("StringLike", false)
	intDef := ast.NewDef("foo", intClass, nil, nil, ast.NewExpressions(nil, ast.Pos{}), false, types.NilType, ast.Pos{})
	strDef := ast.NewDef("foo", strClass, nil, nil, ast.NewExpressions(nil, ast.Pos{}), false, types.NilType, ast.Pos{})

	dupCalls := 0
	var bodies []*ast.Def
	buf.EmitMultidispatch(node, intClass, []*ast.Def{intDef, strDef},
		func() { dupCalls++ },
		func(d *ast.Def) *types.Type { return d.Owner },
		func(d *ast.Def) { bodies = append(bodies, d) },
	)

	if dupCalls != 1 {
		t.Fatalf("expected dupSubject called once (for the non-last candidate), got %d", dupCalls)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected both candidate bodies emitted (one guarded, one exhaustive), got %d", len(bodies))
	}

	code := buf.Bytes()
	op := Opcode(code[0])
	if op != OP_REFERENCE_IS_A {
		t.Fatalf("expected the first candidate to be guarded by REFERENCE_IS_A (Owner is a plain class, not a union), got %v", op)
	}
	testedID := readOperand(code[1:5], w4)
	if int32(testedID) != intClass.TypeID() {
		t.Fatalf("expected the guard to test the first candidate's own Owner type-id %d, got %d", intClass.TypeID(), testedID)
	}
}

// TestEmitMultidispatchArgumentBased is the free-function overload case spec
// §8 scenario 6 also describes: foo(x:Int32) / foo(x:String) called with no
// receiver at all, both candidates' Owner nil. Before the fix, the cascade
// tested def.Owner.TypeID() for every candidate, which is always 0 for a nil
// Owner — discriminant here must be told to look at the parameter type
// instead, and the subject (a mixed union, since Int32|String isn't
// reference-like) must be tested with UNION_IS_A.
func TestEmitMultidispatchArgumentBased(t *testing.T) {
	buf := NewBuffer()
	node := dummyNode(t)
	intParam := types.NewInt(32)
	strParam := types.String
	subjectType := types.NewMixedUnion(intParam, strParam)

	intDef := ast.NewDef("foo", nil, []ast.Param{{Name: "x", Type: intParam}}, nil, ast.NewExpressions(nil, ast.Pos{}), false, types.NilType, ast.Pos{})
	strDef := ast.NewDef("foo", nil, []ast.Param{{Name: "x", Type: strParam}}, nil, ast.NewExpressions(nil, ast.Pos{}), false, types.NilType, ast.Pos{})

	if intDef.Owner != nil || strDef.Owner != nil {
		t.Fatalf("expected free-function overloads to carry a nil Owner")
	}

	discriminantCalls := 0
	buf.EmitMultidispatch(node, subjectType, []*ast.Def{intDef, strDef},
		func() {},
		func(d *ast.Def) *types.Type {
			discriminantCalls++
			if d.Owner != nil {
				t.Fatalf("discriminant should never be asked for Owner on a free-function candidate")
			}
			return d.Params[0].Type
		},
		func(d *ast.Def) {},
	)

	if discriminantCalls != 1 {
		t.Fatalf("expected discriminant consulted once (for the guarded, non-last candidate), got %d", discriminantCalls)
	}

	code := buf.Bytes()
	op := Opcode(code[0])
	if op != OP_UNION_IS_A {
		t.Fatalf("expected the mixed-union subject to be tested with UNION_IS_A, got %v", op)
	}
	testedID := readOperand(code[1:5], w4)
	if int32(testedID) != intParam.TypeID() {
		t.Fatalf("expected the guard to test the first candidate's param type-id %d (not 0, the old Owner-nil bug), got %d", intParam.TypeID(), testedID)
	}
}

func TestTypeTestOpcode(t *testing.T) {
	if typeTestOpcode(types.NewMixedUnion(types.NewInt(32), types.String)) != OP_UNION_IS_A {
		t.Fatalf("expected a mixed union subject to pick UNION_IS_A")
	}
	if typeTestOpcode(types.NewClass("Widget", false)) != OP_REFERENCE_IS_A {
		t.Fatalf("expected a plain class subject to pick REFERENCE_IS_A")
	}
	if typeTestOpcode(nil) != OP_REFERENCE_IS_A {
		t.Fatalf("expected a nil subject type to default to REFERENCE_IS_A")
	}
}

func TestEmitMultidispatchEmptyCandidatesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected EmitMultidispatch to panic on an empty candidate list")
		}
	}()
	buf := NewBuffer()
	buf.EmitMultidispatch(dummyNode(t), nil, nil, func() {}, func(*ast.Def) *types.Type { return nil }, func(*ast.Def) {})
}
