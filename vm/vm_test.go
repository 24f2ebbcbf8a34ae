package vm

import (
	"opal/ast"
	"opal/compiler"
	"opal/types"
	"testing"
)

// assemble concatenates a sequence of instructions built via instr, which
// wraps compiler.AssembleInstruction and fails the test on an encoding error.
func assemble(t *testing.T, instrs ...[]byte) compiler.Instructions {
	t.Helper()
	var out compiler.Instructions
	for _, instr := range instrs {
		out = append(out, instr...)
	}
	return out
}

func instr(t *testing.T, op compiler.Opcode, operands ...int64) []byte {
	t.Helper()
	b, err := compiler.AssembleInstruction(op, operands...)
	if err != nil {
		t.Fatalf("assemble %v: %v", op, err)
	}
	return b
}

// entryDef wraps code as a Bytecode's top-level body, the shape
// compiler.CompileFile produces for a file with no user defs at all.
func entryDef(t *testing.T, code compiler.Instructions, retType *types.Type) compiler.Bytecode {
	t.Helper()
	return compiler.Bytecode{Instructions: code}
}

func TestArithmetic(t *testing.T) {
	code := assemble(t,
		instr(t, compiler.OP_PUT_I32, 5),
		instr(t, compiler.OP_PUT_I32, 3),
		instr(t, compiler.OP_ADD, int64(compiler.PrimTagI32)),
		instr(t, compiler.OP_LEAVE_DEF, 4),
	)
	bc := entryDef(t, code, types.NewInt(32))

	result, err := New().Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(8) {
		t.Errorf("got %v, want 8", result)
	}
}

func TestComparisonAndBranch(t *testing.T) {
	// if 1 < 2 then PUT_I32 1 else PUT_I32 0 end
	//
	// byte layout (each PUT_I32/JUMP/BRANCH_UNLESS is 5 bytes: 1 opcode +
	// 1 4-byte operand; CMP_LT is 2 bytes: 1 opcode + 1 1-byte PrimTag):
	//   0  PUT_I32 1
	//   5  PUT_I32 2
	//  10  CMP_LT tag
	//  12  BRANCH_UNLESS -> 27 (else branch)
	//  17  PUT_I32 1            (then)
	//  22  JUMP -> 32           (skip else)
	//  27  PUT_I32 0            (else)
	//  32  LEAVE_DEF 4
	code := assemble(t,
		instr(t, compiler.OP_PUT_I32, 1),
		instr(t, compiler.OP_PUT_I32, 2),
		instr(t, compiler.OP_CMP_LT, int64(compiler.PrimTagI32)),
		instr(t, compiler.OP_BRANCH_UNLESS, 27),
		instr(t, compiler.OP_PUT_I32, 1),
		instr(t, compiler.OP_JUMP, 32),
		instr(t, compiler.OP_PUT_I32, 0),
		instr(t, compiler.OP_LEAVE_DEF, 4),
	)

	bc := entryDef(t, code, types.NewInt(32))
	result, err := New().Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(1) {
		t.Errorf("got %v, want 1", result)
	}
}

func TestCallUserDef(t *testing.T) {
	// def double(x : Int32) : Int32; x + x; end, called as double(21)
	doubleDef := ast.NewDef("double", nil,
		[]ast.Param{{Name: "x", Type: types.NewInt(32)}},
		map[string]*types.Type{"x": types.NewInt(32)},
		ast.NewExpressions(nil, ast.Pos{}), false, types.NewInt(32), ast.Pos{})

	doubleCode := assemble(t,
		instr(t, compiler.OP_GET_LOCAL, 0, 4),
		instr(t, compiler.OP_GET_LOCAL, 0, 4),
		instr(t, compiler.OP_ADD, int64(compiler.PrimTagI32)),
		instr(t, compiler.OP_LEAVE_DEF, 4),
	)

	mainCode := assemble(t,
		instr(t, compiler.OP_PUT_I32, 21),
		instr(t, compiler.OP_CALL, 0),
		instr(t, compiler.OP_LEAVE_DEF, 4),
	)

	bc := compiler.Bytecode{
		Instructions: mainCode,
		Defs: []*compiler.CompiledDef{
			{Def: doubleDef, Code: doubleCode},
		},
	}

	result, err := New().Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(42) {
		t.Errorf("got %v, want 42", result)
	}
}
