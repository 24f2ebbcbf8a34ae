// intrinsics.go lowers primitive calls (spec §4.7 rule 2: "dispatch to the
// intrinsic lowerer... one rule per primitive opcode, directly emitting the
// corresponding instruction" — left unenumerated by the representative
// opcode list, built here in the teacher's small-pure-function idiom).
// These are the arithmetic, comparison, pointer and allocation operations a
// Def marked IsPrimitive forwards to instead of having a body of its own.
package compiler

import (
	"opal/ast"
	"opal/types"
)

// primTagFor picks the PrimTag a primitive arithmetic/comparison opcode
// needs to know which runtime width to operate over.
func primTagFor(t *types.Type) PrimTag {
	if t == nil {
		return PrimTagI32
	}
	switch t.Prim {
	case types.PrimBool:
		return PrimTagBool
	case types.PrimChar:
		return PrimTagChar
	case types.PrimFloat:
		return PrimTagF64
	default:
		if t.BitWidth > 32 {
			return PrimTagI64
		}
		return PrimTagI32
	}
}

var primitiveArith = map[string]Opcode{
	"add": OP_ADD,
	"sub": OP_SUB,
	"mul": OP_MUL,
	"div": OP_DIV,
	"mod": OP_MOD,
}

var primitiveCompare = map[string]Opcode{
	"eq":  OP_CMP_EQ,
	"neq": OP_CMP_NEQ,
	"lt":  OP_CMP_LT,
	"le":  OP_CMP_LE,
	"gt":  OP_CMP_GT,
	"ge":  OP_CMP_GE,
}

// lowerPrimitiveCall lowers a Call whose target def is IsPrimitive: the
// receiver and arguments are evaluated exactly as any other call, but
// instead of a CALL instruction the core emits the single opcode the
// primitive corresponds to.
func (e *Emitter) lowerPrimitiveCall(n ast.Call, wantsValue bool) {
	e.lowerReceiver(n)
	for _, arg := range n.Args {
		e.withWantsValue(true, func() { e.Lower(arg, true) })
	}

	operandType := n.Type()
	if n.Receiver != nil {
		operandType = n.Receiver.Type()
	}
	tag := primTagFor(operandType)

	switch {
	case n.PrimitiveOp == "self":
		// lowerReceiver already pushed PUT_SELF above for a nil-receiver call.
	case n.PrimitiveOp == "neg":
		e.buf.Emit(OP_NEG, n, int64(tag))
	case isArith(n.PrimitiveOp):
		e.buf.Emit(primitiveArith[n.PrimitiveOp], n, int64(tag))
	case isCompare(n.PrimitiveOp):
		e.buf.Emit(primitiveCompare[n.PrimitiveOp], n, int64(tag))
	case n.PrimitiveOp == "pointer_add":
		elemSize := 0
		if n.Receiver != nil && n.Receiver.Type().Elem != nil {
			elemSize = n.Receiver.Type().Elem.AlignedSize()
		}
		e.buf.Emit(OP_POINTER_ADD, n, int64(elemSize))
	case n.PrimitiveOp == "pointer_get":
		e.buf.Emit(OP_POINTER_GET, n, int64(n.Type().AlignedSize()))
	case n.PrimitiveOp == "pointer_set":
		size := 0
		if len(n.Args) > 0 {
			size = n.Args[0].Type().AlignedSize()
		}
		e.buf.Emit(OP_POINTER_SET, n, int64(size))
	case n.PrimitiveOp == "allocate":
		size := 0
		if n.Type().Elem != nil {
			size = n.Type().Elem.AlignedSize()
		}
		e.buf.Emit(OP_ALLOCATE, n, int64(size))
	default:
		bug(n.Position(), "lower: unknown primitive op %q", n.PrimitiveOp)
	}

	e.dropIfUnused(n, wantsValue)
}

func isArith(op string) bool {
	switch op {
	case "add", "sub", "mul", "div", "mod":
		return true
	default:
		return false
	}
}

func isCompare(op string) bool {
	switch op {
	case "eq", "neq", "lt", "le", "gt", "ge":
		return true
	default:
		return false
	}
}
