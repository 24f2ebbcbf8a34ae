// decls.go holds the declaration-shaped AST variants. All of them lower to
// either a no-op or to their Body (spec §3): their effects (registering a
// type, an include, a visibility change) are entirely the frontend's
// concern by the time the core sees them.
package ast

import "opal/types"

// ClassDecl declares a class or struct; its Body (defs, instance-var decls,
// nested declarations) is lowered in sequence, the declaration itself is a
// no-op at this stage.
type ClassDecl struct {
	base
	Name      string
	ClassType *types.Type
	Body      Node
}

func NewClassDecl(name string, t *types.Type, body Node, pos Pos) ClassDecl {
	return ClassDecl{NewBase(types.NilType, pos), name, t, body}
}

// ModuleDecl declares a module (a reference-like mixin namespace).
type ModuleDecl struct {
	base
	Name string
	Body Node
}

func NewModuleDecl(name string, body Node, pos Pos) ModuleDecl {
	return ModuleDecl{NewBase(types.NilType, pos), name, body}
}

// EnumDecl declares an enum type; members are resolved by the frontend into
// constant Int32 Path bindings, so the declaration itself lowers to nothing.
type EnumDecl struct {
	base
	Name     string
	EnumType *types.Type
}

func NewEnumDecl(name string, t *types.Type, pos Pos) EnumDecl {
	return EnumDecl{NewBase(types.NilType, pos), name, t}
}

// LibDecl declares an `lib Foo` FFI binding namespace; Body holds its FunDecl
// children.
type LibDecl struct {
	base
	Name string
	Body Node
}

func NewLibDecl(name string, body Node, pos Pos) LibDecl {
	return LibDecl{NewBase(types.NilType, pos), name, body}
}

// FunDecl declares a single external C function signature inside a LibDecl;
// it carries no body of its own — the core only ever sees it as a Call
// target with IsFFI set.
type FunDecl struct {
	base
	Name     string
	CSymbol  string
	Params   []Param
	Variadic bool
}

func NewFunDecl(name, csymbol string, params []Param, variadic bool, t *types.Type, pos Pos) FunDecl {
	return FunDecl{NewBase(t, pos), name, csymbol, params, variadic}
}

// MacroDecl is retained only as a placeholder: macro expansion has already
// happened upstream (spec §1 Non-goals), so a MacroDecl reaching the core is
// always a no-op.
type MacroDecl struct{ base }

func NewMacroDecl(pos Pos) MacroDecl {
	return MacroDecl{NewBase(types.NilType, pos)}
}

// AliasDecl declares Name as forwarding to Target (types.KindAlias); no
// runtime effect.
type AliasDecl struct {
	base
	Name   string
	Target *types.Type
}

func NewAliasDecl(name string, target *types.Type, pos Pos) AliasDecl {
	return AliasDecl{NewBase(types.NilType, pos), name, target}
}

// AnnotationDecl declares an annotation type; purely a frontend/metadata
// concern.
type AnnotationDecl struct {
	base
	Name string
}

func NewAnnotationDecl(name string, pos Pos) AnnotationDecl {
	return AnnotationDecl{NewBase(types.NilType, pos), name}
}

// IncludeDecl mixes Module into the enclosing type; resolved by the
// frontend's method lookup, so it lowers to nothing here.
type IncludeDecl struct {
	base
	Module *types.Type
}

func NewIncludeDecl(module *types.Type, pos Pos) IncludeDecl {
	return IncludeDecl{NewBase(types.NilType, pos), module}
}

// ExtendDecl extends the enclosing type's metaclass with Module.
type ExtendDecl struct {
	base
	Module *types.Type
}

func NewExtendDecl(module *types.Type, pos Pos) ExtendDecl {
	return ExtendDecl{NewBase(types.NilType, pos), module}
}

// TypeDeclaration declares an instance/class var's type without assigning it
// (e.g. `@x : Int32`), reserving its slot; no bytecode is emitted directly,
// the slot is materialized by the owning type's layout.
type TypeDeclaration struct {
	base
	Name string
	Declared *types.Type
}

func NewTypeDeclaration(name string, declared *types.Type, pos Pos) TypeDeclaration {
	return TypeDeclaration{NewBase(types.NilType, pos), name, declared}
}

// VisibilityModifier marks the following declarations private/protected; a
// purely lexical, compile-time-only concern with no runtime effect.
type VisibilityModifier struct {
	base
	Level string
	Body  Node
}

func NewVisibilityModifier(level string, body Node, pos Pos) VisibilityModifier {
	return VisibilityModifier{NewBase(types.NilType, pos), level, body}
}
