// frame.go is the local-variable frame (spec C2): byte-offset slot
// allocation for a single def/block's locals, with nested-scope push/pop so
// sibling blocks can reuse stack space. Grounded on the teacher's
// ast_compiler.go Local/declareLocal/resolveLocal/beginScope/endScope
// family, generalized from variable-count slots to byte offsets sized per
// spec §4.3's aligned_size.
package compiler

import (
	"opal/ast"
	"opal/internal/stackutil"
	"opal/types"
)

// localSlot is one declared local within a Frame.
type localSlot struct {
	Name   string
	Offset int
	Type   *types.Type
}

// scopeMark records a Frame's state at BeginScope, to roll back to on
// EndScope.
type scopeMark struct {
	localsLen  int
	nextOffset int
}

// Frame allocates byte offsets for one def's or block's local variables,
// tracking nested scope boundaries (while bodies and inlined block bodies) so that slots from a
// closed scope can be reused by a later sibling scope.
type Frame struct {
	locals     []localSlot
	nextOffset int
	widest     int
	scopes     stackutil.Stack[scopeMark]
}

// NewFrame returns an empty local-variable frame.
func NewFrame() *Frame {
	return &Frame{}
}

// Declare allocates a new local named name of type t, returning its byte
// offset within the frame. Redeclaring the same name within the same open
// scope (illegal in well-typed input) shadows rather than errors, since the
// frontend is responsible for rejecting that upstream.
func (f *Frame) Declare(name string, t *types.Type) int {
	offset := f.nextOffset
	f.locals = append(f.locals, localSlot{Name: name, Offset: offset, Type: t})
	f.nextOffset += t.AlignedSize()
	if f.nextOffset > f.widest {
		f.widest = f.nextOffset
	}
	return offset
}

// BeginScope opens a nested lexical scope (entering a while body or an
// inlined block body).
func (f *Frame) BeginScope() {
	f.scopes.Push(scopeMark{localsLen: len(f.locals), nextOffset: f.nextOffset})
}

// EndScope closes the innermost open scope, discarding locals declared
// inside it and reclaiming their byte offsets for reuse by the next sibling
// scope.
func (f *Frame) EndScope() {
	mark, ok := f.scopes.Pop()
	if !ok {
		bug(ast.Pos{}, "frame: EndScope without matching BeginScope")
	}
	f.locals = f.locals[:mark.localsLen]
	f.nextOffset = mark.nextOffset
}

// Resolve looks up name among currently visible locals, innermost
// declaration first (shadowing). ok is false if no local named name is in
// scope.
func (f *Frame) Resolve(name string) (offset int, t *types.Type, ok bool) {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].Name == name {
			return f.locals[i].Offset, f.locals[i].Type, true
		}
	}
	return 0, nil, false
}

// Size is the total byte footprint of every local ever declared in the
// frame across its widest point, used to size a def's reserved local-storage
// region ahead of execution.
func (f *Frame) Size() int {
	return f.widest
}
