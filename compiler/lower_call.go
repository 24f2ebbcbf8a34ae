// lower_call.go lowers ast.Call, the densest node kind (spec §4.7): receiver
// evaluation (including the struct-by-value self-pointer convention),
// positional/named arguments, multidispatch via dispatch.go, block inlining
// via lowerYield, struct-returning calls' caller-supplied result storage,
// and FFI calls via rt's descriptor cache. Grounded on the teacher's
// ast_compiler.go VisitCallExpr, generalized from its single fixed call
// convention to the full branching rule set spec §4.7 lists.
package compiler

import (
	"opal/ast"
	"opal/rt"
	"opal/types"
)

// lowerDef compiles def's body into a standalone CompiledDef. block is the
// Block bound at this call site (nil unless def.TakesBlock); its presence
// is why defs with blocks are recompiled fresh at every call rather than
// reused from the identity cache (spec C6).
func lowerDef(ctx *Context, def *ast.Def, block *ast.Block) *CompiledDef {
	frame := NewFrame()
	argsSize := 0
	for _, p := range def.Params {
		frame.Declare(p.Name, p.Type)
		argsSize += p.Type.AlignedSize()
	}
	buf := NewBuffer()
	em := NewEmitter(ctx, buf, frame, def.Owner, block)
	em.Lower(def.Body, true)
	// fallback epilogue: every path that doesn't end in an explicit Return
	// falls through to here, leaving the body's own trailing value as the
	// call's result.
	buf.Emit(OP_LEAVE_DEF, def, int64(def.Type().AlignedSize()))

	return &CompiledDef{
		Def:           def,
		Code:          buf.Bytes(),
		NodeMap:       buf.nodeMap,
		Frame:         frame,
		ArgsSize:      argsSize,
		ReturnsStruct: def.Type().PassedByValue(),
	}
}

// callNeedsStructReceiverPointer reports whether call's most specific
// candidate expects `self` as a pointer to a mutable struct (spec §4.7's
// struct receiver rule) rather than an implicit reference.
func callNeedsStructReceiverPointer(call ast.Call) bool {
	if len(call.TargetDefs) == 0 {
		return false
	}
	owner := call.TargetDefs[0].Owner
	return owner != nil && owner.IsStructType()
}

// lowerReceiver pushes call's receiver (or self, or nothing for a
// top-level/static call), honoring the struct-pointer convention when the
// resolved target expects one. Only addressable receivers (a local,
// instance var, or class var already holding the struct in place) can
// supply that pointer directly; a struct produced by an arbitrary
// sub-expression has no stable address to take, so it falls back to
// ordinary by-value passing.
func (e *Emitter) lowerReceiver(call ast.Call) {
	if call.Receiver == nil {
		if e.self != nil {
			e.buf.Emit(OP_PUT_SELF, call)
		}
		return
	}
	if !callNeedsStructReceiverPointer(call) {
		e.withWantsValue(true, func() { e.Lower(call.Receiver, true) })
		return
	}
	switch call.Receiver.(type) {
	case ast.Var, ast.InstanceVar, ast.ClassVar:
		e.withWantsStructPointer(true, func() {
			e.withWantsValue(true, func() { e.Lower(call.Receiver, true) })
		})
	default:
		e.withWantsValue(true, func() { e.Lower(call.Receiver, true) })
	}
}

// emitOutArg lowers one FFI/regular call argument, taking the address of an
// Out-wrapped argument's target rather than its value.
func (e *Emitter) emitOutArg(node ast.Node, arg ast.Node) {
	if out, ok := arg.(ast.Out); ok {
		e.emitPointerOf(node, out.Target)
		return
	}
	e.withWantsValue(true, func() { e.Lower(arg, true) })
}

func (e *Emitter) lowerCall(n ast.Call, wantsValue bool) {
	if n.IsPrimitive {
		e.lowerPrimitiveCall(n, wantsValue)
		return
	}
	if n.IsFFI {
		e.lowerFFICall(n, wantsValue)
		return
	}
	if len(n.TargetDefs) == 0 {
		bug(n.Position(), "lower: call %q has no resolved target defs", n.Name)
	}

	// argBased is true when every candidate is a plain overloaded function
	// (Owner nil on all of them): there is then no receiver on the stack to
	// dispatch on at all, and the discriminant has to come from the first
	// argument's runtime type instead (spec §8 scenario 6's `foo(x:Int32)`/
	// `foo(x:String)` pair called as free functions).
	argBased := true
	for _, def := range n.TargetDefs {
		if def.Owner != nil {
			argBased = false
			break
		}
	}
	multi := len(n.TargetDefs) > 1

	e.lowerReceiver(n)

	var subjectSlot int
	var subjectType *types.Type
	if multi && !argBased {
		subjectType = receiverRuntimeType(n, e.self)
		subjectSlot = e.stashDispatchSubject(n, subjectType)
	}

	for i, arg := range n.Args {
		e.emitOutArg(n, arg)
		if multi && argBased && i == 0 {
			subjectType = arg.Type()
			subjectSlot = e.stashDispatchSubject(n, subjectType)
		}
	}
	for _, na := range n.NamedArgs {
		e.withWantsValue(true, func() { e.Lower(na.Value, true) })
	}

	// dupSubject reads the snapshot stashDispatchSubject took right after
	// the subject was pushed, rather than duplicating whatever happens to
	// be on top of the stack: by the time the cascade runs, that top slot
	// is the last pushed argument, not the dispatch subject, whenever the
	// call has any arguments at all.
	dupSubject := func() { e.buf.Emit(OP_GET_LOCAL, n, int64(subjectSlot), int64(subjectType.AlignedSize())) }
	discriminant := func(def *ast.Def) *types.Type {
		if argBased {
			if len(def.Params) > 0 {
				return def.Params[0].Type
			}
			return nil
		}
		return def.Owner
	}

	e.buf.EmitMultidispatch(n, subjectType, n.TargetDefs, dupSubject, discriminant, func(def *ast.Def) {
		e.emitDispatchedCall(n, def)
	})

	e.dropIfUnused(n, wantsValue)
}

// stashDispatchSubject duplicates whatever was just pushed (the receiver,
// or the first dispatch-relevant argument) into a fresh local so the
// multidispatch cascade can read a stable, stack-position-independent copy
// of it no matter how many further values get pushed on top before the
// cascade runs.
func (e *Emitter) stashDispatchSubject(node ast.Node, t *types.Type) int {
	size := t.AlignedSize()
	e.buf.Emit(OP_DUP, node, int64(size))
	slot := e.frame.Declare("<dispatch-subject>", t)
	e.buf.Emit(OP_SET_LOCAL, node, int64(slot), int64(size))
	return slot
}

// receiverRuntimeType is the static type EmitMultidispatch type-tests
// against: the call's explicit receiver, or the enclosing self when the
// call is implicit.
func receiverRuntimeType(call ast.Call, self *types.Type) *types.Type {
	if call.Receiver != nil {
		return call.Receiver.Type()
	}
	return self
}

// emitDispatchedCall compiles (or reuses) def and emits the CALL/
// CALL_WITH_BLOCK instruction that invokes it, wrapping it in the
// struct-by-value return convention when def.Type() is itself struct?:
// the caller reserves a zeroed result region, takes a pointer to it for the
// callee to write through, then collapses the stale pointer the call left
// behind with POP_FROM_OFFSET so only the filled-in struct remains on top
// (spec §4.7's struct-by-value calling convention).
func (e *Emitter) emitDispatchedCall(n ast.Call, def *ast.Def) {
	var idx int
	var compiled *CompiledDef
	if def.TakesBlock {
		idx, compiled = e.ctx.Defs.GetOrCompile(def, func(d *ast.Def) *CompiledDef { return lowerDef(e.ctx, d, n.Block) })
	} else {
		idx, compiled = e.ctx.Defs.GetOrCompile(def, func(d *ast.Def) *CompiledDef { return lowerDef(e.ctx, d, nil) })
	}

	if compiled.ReturnsStruct {
		size := def.Type().AlignedSize()
		e.buf.Emit(OP_PUSH_ZEROS, n, int64(size))
		e.buf.Emit(OP_PUT_STACK_TOP_POINTER, n, int64(size))
	}

	if def.TakesBlock {
		e.buf.Emit(OP_CALL_WITH_BLOCK, n, int64(idx))
	} else {
		e.buf.Emit(OP_CALL, n, int64(idx))
	}

	if compiled.ReturnsStruct {
		e.buf.Emit(OP_POP_FROM_OFFSET, n, int64(def.Type().AlignedSize()), int64(types.PointerWidth))
	}
}

// lowerFFICall assembles an FFI descriptor via rt.LibFuncCache and emits a
// LIB_CALL referencing it (spec §4.7 FFI rule: "per-argument byte sizes +
// FFI type codes").
func (e *Emitter) lowerFFICall(n ast.Call, wantsValue bool) {
	paramTypes := make([]*types.Type, 0, len(n.Args))
	for _, arg := range n.Args {
		if out, ok := arg.(ast.Out); ok {
			paramTypes = append(paramTypes, types.NewPointer(out.Target.Type()))
			continue
		}
		paramTypes = append(paramTypes, arg.Type())
	}

	idx, _ := e.ctx.LibFuncs.GetOrBuild(n.Name, false, func() *rt.LibFunction {
		return rt.NewLibFunction(n.Name, n.Name, paramTypes, n.Type(), false)
	})

	for _, arg := range n.Args {
		e.emitOutArg(n, arg)
	}
	e.buf.Emit(OP_LIB_CALL, n, int64(idx))
	e.dropIfUnused(n, wantsValue)
}
