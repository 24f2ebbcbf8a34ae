// constants.go is the constant / class-var table (spec C4): slot assignment
// for top-level constants and class variables, plus the lazy-initializer
// guard sequence spec §4.7 describes (CONST_INITIALIZED, BRANCH_IF, the
// initializer body, SET_CONST). Grounded on the teacher's ASTCompiler
// "initialized" map and its NameConstants/OP_DEFINE_GLOBAL family in
// ast_compiler.go, generalized from a single flat global table to one slot
// table each for constants and class vars.
package compiler

import "opal/types"

// slotEntry is one declared constant or class-var slot.
type slotEntry struct {
	Name string
	Type *types.Type
}

// SlotTable assigns stable integer slot indices to names, in declaration
// order, for later GET_CONST/SET_CONST (or GET_CLASS_VAR/SET_CLASS_VAR)
// operands to address.
type SlotTable struct {
	entries []slotEntry
	index   map[string]int
}

// NewSlotTable returns an empty slot table.
func NewSlotTable() *SlotTable {
	return &SlotTable{index: make(map[string]int)}
}

// Declare assigns name a slot if it doesn't already have one, returning its
// index either way (re-declaring a constant at the same name is an
// idempotent no-op, matching re-running a file that re-opens a class).
func (st *SlotTable) Declare(name string, t *types.Type) int {
	if idx, ok := st.index[name]; ok {
		return idx
	}
	idx := len(st.entries)
	st.entries = append(st.entries, slotEntry{Name: name, Type: t})
	st.index[name] = idx
	return idx
}

// IndexOf returns name's slot index; ok is false if it was never declared.
func (st *SlotTable) IndexOf(name string) (int, bool) {
	idx, ok := st.index[name]
	return idx, ok
}

// Len is the number of distinct slots declared.
func (st *SlotTable) Len() int {
	return len(st.entries)
}

// EmitLazyInit emits the guarded lazy-initialization sequence spec §4.7
// requires for a top-level constant or class var: check the slot's
// initialized flag, skip the initializer entirely if already set, otherwise
// run initBody (which must leave the computed value on the stack) and store
// it. slot is the constant/class-var index; initialized/store are the
// opcode pair (CONST_INITIALIZED/SET_CONST or
// CLASS_VAR_INITIALIZED/SET_CLASS_VAR) appropriate to the table this slot
// belongs to.
func (b *Buffer) EmitLazyInit(initialized, store Opcode, slot int, size int, initBody func()) {
	b.Emit(initialized, nil, int64(slot))
	skip := b.EmitJumpPlaceholder(OP_BRANCH_IF, nil)
	initBody()
	b.Emit(store, nil, int64(slot), int64(size))
	b.PatchJumpHere(skip)
}
