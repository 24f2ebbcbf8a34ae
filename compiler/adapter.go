// adapter.go is the value-width adapter (spec C8): reconciling a value's
// stack representation when it crosses a static-type boundary that doesn't
// match its runtime layout one-for-one. Grounded on spec §4.8's
// upcast/downcast rule table, written in the small-pure-function idiom the
// teacher's code.go/compiler.go use for per-opcode helpers.
package compiler

import (
	"opal/ast"
	"opal/types"
)

// Upcast adapts a value of static type from, already on the stack, to be
// observed as static type to. Most widenings are representation no-ops
// (spec §4.8): reference-like -> nilable, reference-like -> reference
// union, anything -> virtual all share a representation with their
// narrower type. Only widening into a mixed union requires an actual
// instruction, since a mixed union's tagged-payload layout differs from any
// single variant's own layout.
func (b *Buffer) Upcast(node ast.Node, from, to *types.Type) {
	if from == nil || to == nil || from.TypeID() == to.TypeID() {
		return
	}
	switch to.Kind {
	case types.KindMixedUnion:
		b.Emit(OP_BOX_UNION, node, int64(from.TypeID()), int64(to.InnerSize()))
	case types.KindNilable, types.KindReferenceUnion, types.KindNilableReferenceUnion,
		types.KindVirtual, types.KindVirtualMetaclass:
		// representation-compatible: no-op
	default:
		// same-shape primitive widening (e.g. Int32 -> Int64 boundary the
		// frontend already resolved to identical stack width) or an
		// application the frontend has already proven representation-stable.
	}
}

// Downcast adapts a value of static type from, already on the stack, down
// to the narrower static type to (the post is_a?/cast narrowing case).
// Unboxing out of a mixed union is the only representation change; every
// other narrowing shares from's layout already.
func (b *Buffer) Downcast(node ast.Node, from, to *types.Type) {
	if from == nil || to == nil || from.TypeID() == to.TypeID() {
		return
	}
	switch from.Kind {
	case types.KindMixedUnion:
		b.Emit(OP_UNBOX_UNION, node, int64(to.TypeID()), int64(to.AlignedSize()))
	case types.KindNilable, types.KindReferenceUnion, types.KindNilableReferenceUnion,
		types.KindVirtual, types.KindVirtualMetaclass:
		// representation-compatible: no-op
	default:
	}
}
