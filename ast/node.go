// Package ast defines the closed set of AST node variants spec §3 lists.
// The frontend (out of scope per spec §1) produces these fully type-resolved;
// the compiler core only ever reads Node.Type(), never re-infers it.
//
// Per spec §9's redesign flag ("Visitor -> exhaustive tagged dispatch"),
// nodes do NOT implement Accept/Visit. They are plain structs behind the
// Node marker interface, and compiler/lower.go dispatches on them with one
// exhaustive type switch instead of a double-dispatch visitor.
package ast

import "opal/types"

// Pos is a node's source location, carried through to the node map the
// compiler builds (spec §3 "Node map", §6 "instruction_offset -> node").
type Pos struct {
	Line   int32
	Column int
}

// Node is the marker every AST variant implements. Type returns the
// frontend-resolved static type of the node; for statement-shaped nodes that
// don't produce a value it is types.NilType.
type Node interface {
	Type() *types.Type
	Position() Pos
}

// base is embedded by every concrete node to supply Type()/Position()
// without per-kind boilerplate.
type base struct {
	T   *types.Type
	Pos Pos
}

func (b base) Type() *types.Type { return b.T }
func (b base) Position() Pos     { return b.Pos }

// NewBase constructs the embeddable base for a node of type t at pos.
func NewBase(t *types.Type, pos Pos) base {
	return base{T: t, Pos: pos}
}
