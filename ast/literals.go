package ast

import "opal/types"

// NilLiteral is the `nil` literal.
type NilLiteral struct{ base }

func NewNilLiteral(pos Pos) NilLiteral {
	return NilLiteral{NewBase(types.NilType, pos)}
}

// BoolLiteral is `true`/`false`.
type BoolLiteral struct {
	base
	Value bool
}

func NewBoolLiteral(v bool, pos Pos) BoolLiteral {
	return BoolLiteral{NewBase(types.Bool, pos), v}
}

// NumberLiteral is an integer or float literal; IsFloat distinguishes them so
// the lowering pass can pick the right PUT_* opcode without re-deriving it
// from t.Type() on the hot path.
type NumberLiteral struct {
	base
	IsFloat bool
	Int     int64
	Float   float64
}

func NewIntLiteral(v int64, t *types.Type, pos Pos) NumberLiteral {
	return NumberLiteral{NewBase(t, pos), false, v, 0}
}

func NewFloatLiteral(v float64, t *types.Type, pos Pos) NumberLiteral {
	return NumberLiteral{NewBase(t, pos), true, 0, v}
}

// CharLiteral is a single Unicode code point literal.
type CharLiteral struct {
	base
	Value rune
}

func NewCharLiteral(v rune, pos Pos) CharLiteral {
	return CharLiteral{NewBase(types.Char, pos), v}
}

// StringLiteral is pushed as a pointer to an interned string object (spec
// §4.7: "Strings are pushed as a 64-bit pointer to the interned object").
type StringLiteral struct {
	base
	Value string
}

func NewStringLiteral(v string, t *types.Type, pos Pos) StringLiteral {
	return StringLiteral{NewBase(t, pos), v}
}

// SymbolLiteral becomes its index in the symbol table at lowering time.
type SymbolLiteral struct {
	base
	Name string
}

func NewSymbolLiteral(name string, t *types.Type, pos Pos) SymbolLiteral {
	return SymbolLiteral{NewBase(t, pos), name}
}

// TupleLiteral is a positional tuple literal; Elements are lowered in
// declaration order per spec §4.7's tuple layout rule.
type TupleLiteral struct {
	base
	Elements []Node
}

func NewTupleLiteral(elems []Node, t *types.Type, pos Pos) TupleLiteral {
	return TupleLiteral{NewBase(t, pos), elems}
}

// NamedTupleEntry pairs a named-tuple field name with its value expression.
type NamedTupleEntry struct {
	Name  string
	Value Node
}

// NamedTupleLiteral is a tuple literal whose elements are addressed by name.
type NamedTupleLiteral struct {
	base
	Entries []NamedTupleEntry
}

func NewNamedTupleLiteral(entries []NamedTupleEntry, t *types.Type, pos Pos) NamedTupleLiteral {
	return NamedTupleLiteral{NewBase(t, pos), entries}
}
