// expressions.go holds the scalar-producing AST variants that don't carry
// their own control flow: variable/constant access, assignment, and the
// small family of introspection/cast operators.
package ast

import "opal/types"

// Var reads or names a local variable/parameter/block-arg by name.
type Var struct {
	base
	Name string
}

func NewVar(name string, t *types.Type, pos Pos) Var {
	return Var{NewBase(t, pos), name}
}

// Underscore is the `_` assignment target: evaluated for its side effect,
// the value is always discarded.
type Underscore struct{ base }

func NewUnderscore(pos Pos) Underscore {
	return Underscore{NewBase(types.NilType, pos)}
}

// InstanceVar reads `@name` off the current receiver.
type InstanceVar struct {
	base
	Name string
}

func NewInstanceVar(name string, t *types.Type, pos Pos) InstanceVar {
	return InstanceVar{NewBase(t, pos), name}
}

// ClassVar reads `@@name` off the enclosing type.
type ClassVar struct {
	base
	Owner *types.Type
	Name  string
}

func NewClassVar(owner *types.Type, name string, t *types.Type, pos Pos) ClassVar {
	return ClassVar{NewBase(t, pos), owner, name}
}

// Path is a reference to a named constant (spec §3: "Path(constant
// reference)").
type Path struct {
	base
	Name string
}

func NewPath(name string, t *types.Type, pos Pos) Path {
	return Path{NewBase(t, pos), name}
}

// Assign binds Value to Target, one of Var/InstanceVar/ClassVar/Underscore/Path.
type Assign struct {
	base
	Target Node
	Value  Node
}

func NewAssign(target, value Node, pos Pos) Assign {
	return Assign{NewBase(value.Type(), pos), target, value}
}

// PointerOf takes the address of Target (Var/InstanceVar/ClassVar only).
type PointerOf struct {
	base
	Target Node
}

func NewPointerOf(target Node, t *types.Type, pos Pos) PointerOf {
	return PointerOf{NewBase(t, pos), target}
}

// SizeOf yields the aligned size of Operand as a compile-time constant;
// Operand is never evaluated at runtime.
type SizeOf struct {
	base
	Operand *types.Type
}

func NewSizeOf(operand *types.Type, pos Pos) SizeOf {
	return SizeOf{NewBase(types.NewInt(64), pos), operand}
}

// TypeOf yields the runtime type-id of Expr as a first-class value.
type TypeOf struct {
	base
	Expr Node
}

func NewTypeOf(expr Node, t *types.Type, pos Pos) TypeOf {
	return TypeOf{NewBase(t, pos), expr}
}

// IsA tests whether Expr's runtime type matches Target.
type IsA struct {
	base
	Expr   Node
	Target *types.Type
}

func NewIsA(expr Node, target *types.Type, pos Pos) IsA {
	return IsA{NewBase(types.Bool, pos), expr, target}
}

// Cast narrows Expr to Target, raising (UNREACHABLE) on mismatch (spec §4.7,
// §9 Open Question — the interpreter-level raise hook is TBD).
type Cast struct {
	base
	Expr   Node
	Target *types.Type
}

func NewCast(expr Node, target *types.Type, pos Pos) Cast {
	return Cast{NewBase(target, pos), expr, target}
}

// NilableCast narrows Expr to Target, falling through to nil on mismatch
// instead of raising.
type NilableCast struct {
	base
	Expr   Node
	Target *types.Type
}

func NewNilableCast(expr Node, target *types.Type, pos Pos) NilableCast {
	return NilableCast{NewBase(types.NewNilable(target), pos), expr, target}
}

// Not is logical negation.
type Not struct {
	base
	Expr Node
}

func NewNot(expr Node, pos Pos) Not {
	return Not{NewBase(types.Bool, pos), expr}
}

// ReadInstanceVar reads an instance var off an arbitrary receiver expression
// rather than the implicit `self` (used by attribute-style accessors).
type ReadInstanceVar struct {
	base
	Receiver Node
	Name     string
}

func NewReadInstanceVar(receiver Node, name string, t *types.Type, pos Pos) ReadInstanceVar {
	return ReadInstanceVar{NewBase(t, pos), receiver, name}
}

// Out marks an FFI call argument as an output parameter: the callee writes
// through the pointer to Target rather than reading it.
type Out struct {
	base
	Target Node
}

func NewOut(target Node, pos Pos) Out {
	return Out{NewBase(target.Type(), pos), target}
}

// UninitializedVar declares Name without running an initializer (e.g.
// `uninitialized Int32`); its slot is reserved but left with indeterminate
// bytes until first write.
type UninitializedVar struct {
	base
	Name string
}

func NewUninitializedVar(name string, t *types.Type, pos Pos) UninitializedVar {
	return UninitializedVar{NewBase(t, pos), name}
}

// ProcLiteral wraps Def as a standalone callable; the source rejects
// closures, so Captures must be empty (spec §4.7, §9 Open Question).
type ProcLiteral struct {
	base
	Def      *Def
	Captures []string
}

func NewProcLiteral(def *Def, captures []string, t *types.Type, pos Pos) ProcLiteral {
	return ProcLiteral{NewBase(t, pos), def, captures}
}

// Unreachable marks code the frontend has proven can never execute (e.g.
// past a call to a NoReturn-typed def).
type Unreachable struct{ base }

func NewUnreachable(pos Pos) Unreachable {
	return Unreachable{NewBase(types.NoReturn, pos)}
}
