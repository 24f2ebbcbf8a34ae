package compiler

import (
	"testing"

	"opal/types"
)

func TestFrameDeclareAndResolve(t *testing.T) {
	f := NewFrame()
	i32 := types.NewInt(32)
	xOff := f.Declare("x", i32)
	yOff := f.Declare("y", types.NewFloat(64))

	if xOff != 0 {
		t.Fatalf("expected x at offset 0, got %d", xOff)
	}
	if yOff != 4 {
		t.Fatalf("expected y to start right after x's 4 aligned bytes, got %d", yOff)
	}

	if off, typ, ok := f.Resolve("x"); !ok || off != 0 || typ.TypeID() != i32.TypeID() {
		t.Fatalf("expected x to resolve at offset 0 with Int32 type, got offset=%d ok=%v", off, ok)
	}
	if _, _, ok := f.Resolve("z"); ok {
		t.Fatalf("expected an undeclared local to not resolve")
	}
}

func TestFrameShadowingResolvesInnermost(t *testing.T) {
	f := NewFrame()
	i32, f64 := types.NewInt(32), types.NewFloat(64)
	f.Declare("x", i32)
	f.BeginScope()
	inner := f.Declare("x", f64)
	off, typ, ok := f.Resolve("x")
	if !ok || off != inner || typ.TypeID() != f64.TypeID() {
		t.Fatalf("expected the innermost shadowing declaration to win, got offset=%d", off)
	}
	f.EndScope()
	off, typ, ok = f.Resolve("x")
	if !ok || off != 0 || typ.TypeID() != i32.TypeID() {
		t.Fatalf("expected the outer declaration to resolve again once the inner scope ends, got offset=%d", off)
	}
}

func TestFrameEndScopeReclaimsOffsets(t *testing.T) {
	f := NewFrame()
	f.Declare("x", types.NewInt(32))
	f.BeginScope()
	f.Declare("a", types.NewInt(64))
	f.EndScope()
	f.BeginScope()
	bOff := f.Declare("b", types.NewInt(32))
	f.EndScope()

	if bOff != 4 {
		t.Fatalf("expected a sibling scope's local to reuse the prior sibling's reclaimed offset (4), got %d", bOff)
	}
}

func TestFrameEndScopeWithoutBeginPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected EndScope without a matching BeginScope to panic")
		}
	}()
	NewFrame().EndScope()
}
