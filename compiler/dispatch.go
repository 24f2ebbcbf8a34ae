// dispatch.go builds the multidispatch trampoline (spec C5): when a Call
// resolves to more than one candidate Def, the core must synthesize the
// is_a?/branch cascade that picks the most-specific matching overload at
// runtime. Spec §3/§8 requires candidates be supplied most-specific-first
// and the list be non-empty; there is no teacher equivalent (the source
// language the teacher compiles has no multidispatch), so this is built in
// the teacher's synthesize-then-lower idiom: a builder function that emits
// directly into the current Buffer rather than constructing an intermediate
// tree.
package compiler

import (
	"opal/ast"
	"opal/types"
)

// typeTestOpcode picks REFERENCE_IS_A or UNION_IS_A depending on whether the
// value under test is represented by a bare type-id (reference-like) or a
// tagged mixed-union payload.
func typeTestOpcode(subject *types.Type) Opcode {
	if subject != nil && subject.Kind == types.KindMixedUnion {
		return OP_UNION_IS_A
	}
	return OP_REFERENCE_IS_A
}

// EmitMultidispatch emits the cascade that tests the dispatch subject
// (already on top of the stack, or reachable via dupSubject — see below)
// against each candidate's discriminant type, most-specific first, calling
// emitBody for the first match. discriminant returns the type-id to test a
// given candidate against: the receiver's Owner for receiver-dispatched
// candidates, or the relevant parameter's declared type for candidates
// disambiguated by argument type (Owner is nil for plain overloaded
// functions, so testing Owner there would compare against type-id 0 for
// every candidate and never match). dupSubject is invoked before every test
// but the last to leave a fresh copy of the subject for the next test to
// consume; the final candidate is assumed exhaustive (the frontend never
// hands the core an incomplete candidate list) and is called unconditionally
// without a guard.
func (b *Buffer) EmitMultidispatch(node ast.Node, subjectType *types.Type, candidates []*ast.Def, dupSubject func(), discriminant func(def *ast.Def) *types.Type, emitBody func(def *ast.Def)) {
	if len(candidates) == 0 {
		bug(node.Position(), "dispatch: empty candidate list")
	}
	if len(candidates) == 1 {
		emitBody(candidates[0])
		return
	}

	testOp := typeTestOpcode(subjectType)
	var endJumps []int
	for i, def := range candidates {
		last := i == len(candidates)-1
		if last {
			emitBody(def)
			break
		}
		dupSubject()
		b.Emit(testOp, node, int64(discriminant(def).TypeID()))
		skip := b.EmitJumpPlaceholder(OP_BRANCH_UNLESS, node)
		emitBody(def)
		endJumps = append(endJumps, b.EmitJumpPlaceholder(OP_JUMP, node))
		b.PatchJumpHere(skip)
	}
	for _, j := range endJumps {
		b.PatchJumpHere(j)
	}
}
